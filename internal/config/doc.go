// Package config provides configuration structures and utilities for docingest.
// It defines the options for fetching, crawling documentation sites,
// extracting sections, indexing repositories and report generation, plus the
// optional .docingest YAML file with per-site settings and the repository
// registry.
package config
