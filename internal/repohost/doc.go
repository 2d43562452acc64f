// Package repohost talks to a hosted version-control REST API (GitHub v3).
//
// All requests go through fetch.Fetcher, so repository walks share the
// concurrency cap and retry policy with site crawls. A static token, when
// configured, is sent as a bearer credential.
//
// The client exposes the four operations the repository walker needs:
//   - Metadata: repository description, counts, topics, license
//   - Readme: raw README text, "" when the repository has none
//   - File: raw text of a file by path
//   - List: directory entries; listing a file path is INVALID_INPUT
package repohost
