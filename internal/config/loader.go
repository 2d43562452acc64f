package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/docingest/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".docingest"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is returned when the file parses but has invalid entries.
	ErrInvalidConfigFile = errors.New("invalid configuration file")
)

// LoadConfigFile loads site configurations and the repository registry from
// a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	// Initialize Sites map if nil; keys are matched lower-cased.
	sites := make(map[string]SiteConfig, len(cf.Sites))
	for host, sc := range cf.Sites {
		sites[strings.ToLower(host)] = sc
	}
	cf.Sites = sites

	for i, r := range cf.Repositories {
		if r.Owner == "" || r.Name == "" {
			return nil, fmt.Errorf("%w: repositories[%d] needs owner and name", ErrInvalidConfigFile, i)
		}
		def := model.DefaultRepositoryConfig(r.Owner, r.Name)
		if r.Domain == "" {
			cf.Repositories[i].Domain = def.Domain
		}
		if r.Importance == 0 {
			cf.Repositories[i].Importance = def.Importance
		}
		if r.Tags == nil {
			cf.Repositories[i].Tags = def.Tags
		}
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .docingest in the current directory
// 3. Look for .docingest in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
