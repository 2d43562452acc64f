// Package main provides the entry point for the docingest CLI.
//
// docingest crawls documentation sites and indexes the documentation of
// hosted repositories into a local store and search index.
//
// Usage:
//
//	docingest crawl <url>
//	docingest repo <owner/name>...
//	docingest search <query>
//
// See --help for all available options.
package main

// main is the entry point for docingest.
func main() {
	Execute()
}
