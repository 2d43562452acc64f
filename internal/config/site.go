package config

import (
	"maps"
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

// SiteConfig holds site-specific crawl configuration.
// This allows customizing crawl behavior per documentation host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// Render overrides the global rendering toggle for this site.
	Render *bool `yaml:"render,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// RepositoryEntry is a registry entry of the configuration file.
type RepositoryEntry struct {
	model.RepositoryConfig `yaml:",inline"`

	// IncludePaths and ExcludePaths scope the walk of this repository.
	IncludePaths []string `yaml:"include,omitempty"`
	ExcludePaths []string `yaml:"exclude,omitempty"`
}

// File represents the structure of the .docingest configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are host names without scheme (e.g., "docs.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Repositories is the repository registry.
	Repositories []RepositoryEntry `yaml:"repositories,omitempty"`
}

// GetSiteConfig returns the configuration for a host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	// Copy so merging never writes into the defaults map.
	result.Headers = maps.Clone(cf.Defaults.Headers)

	siteConfig, ok := cf.Sites[strings.ToLower(host)]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.Render != nil {
		result.Render = siteConfig.Render
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}

// Repository returns the registry entry for owner/name, matched
// case-insensitively.
func (cf *File) Repository(owner, name string) (RepositoryEntry, bool) {
	key := model.RepositoryKey(owner, name)
	for _, r := range cf.Repositories {
		if r.Key() == key {
			return r, true
		}
	}
	return RepositoryEntry{}, false
}

// RepositoryConfigs returns the registry entries without their walk scope.
func (cf *File) RepositoryConfigs() []model.RepositoryConfig {
	out := make([]model.RepositoryConfig, 0, len(cf.Repositories))
	for _, r := range cf.Repositories {
		out = append(out, r.RepositoryConfig)
	}
	return out
}
