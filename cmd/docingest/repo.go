package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/repohost"
)

// NewRepoCmd creates the repo command.
func NewRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo [owner/name...]",
		Short: "Index hosted repositories",
		Long: `Repo indexes the README and documentation files of one or more hosted
repositories. Arguments are "owner/name" coordinates or repository URLs.

Repositories indexed within --max-age are skipped unless --force is given.
Include and exclude paths scope the walk; when none are given on the
command line, the paths of the repository's registry entry in the
configuration file are used.

Set GITHUB_TOKEN to raise the API rate limit.

Examples:
  # Index two repositories, four at a time
  docingest repo golang/go spf13/cobra

  # Only index the docs directory
  docingest repo --include docs acme/widgets

  # Index every repository of the registry
  docingest repo -c team.yaml`,
		Args: cobra.ArbitraryArgs,
		RunE: runRepoCmd,
	}

	cmd.Flags().StringSlice("include", nil,
		"Only walk these paths (and their ancestors)")
	cmd.Flags().StringSlice("exclude", nil,
		"Skip these paths")
	cmd.Flags().StringSlice("exclude-glob", nil,
		"Skip paths matching these glob patterns (e.g. \"**/testdata/**\")")
	addFetchFlags(cmd)

	return cmd
}

// runRepoCmd executes the repo command.
func runRepoCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if cfg.IncludePaths, err = flags.GetStringSlice("include"); err != nil {
		return err
	}
	if cfg.ExcludePaths, err = flags.GetStringSlice("exclude"); err != nil {
		return err
	}
	if cfg.ExcludeGlobs, err = flags.GetStringSlice("exclude-glob"); err != nil {
		return err
	}

	refs, err := repositoryArgs(args)
	if err != nil {
		return err
	}
	if len(refs) == 0 && cfg.SiteConfigs != nil {
		for _, entry := range cfg.SiteConfigs.Repositories {
			refs = append(refs, model.RepositoryRef{
				Owner: entry.Owner,
				Name:  entry.Name,
				URL:   "https://github.com/" + entry.Owner + "/" + entry.Name,
			})
		}
	}
	for _, ref := range refs {
		cfg.Repositories = append(cfg.Repositories, ref.String())
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cfg)
	return runIngest(cmd, cfg, "", refs, logger)
}

// repositoryArgs parses the positional repository coordinates.
func repositoryArgs(args []string) ([]model.RepositoryRef, error) {
	refs := make([]model.RepositoryRef, 0, len(args))
	for _, arg := range args {
		ref, ok := repohost.ParseCoordinate(arg)
		if !ok {
			return nil, fmt.Errorf("invalid repository %q (expected owner/name or a repository URL)", arg)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
