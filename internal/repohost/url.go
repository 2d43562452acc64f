package repohost

import (
	"net/url"
	"strings"

	"github.com/nao1215/docingest/internal/model"
)

// reservedOwners are github.com top-level paths that are not accounts.
var reservedOwners = map[string]struct{}{
	"about": {}, "apps": {}, "collections": {}, "contact": {}, "customer-stories": {},
	"enterprise": {}, "events": {}, "explore": {}, "features": {}, "join": {}, "login": {},
	"marketplace": {}, "notifications": {}, "orgs": {}, "pricing": {}, "pulls": {}, "issues": {},
	"readme": {}, "search": {}, "security": {}, "settings": {}, "site": {}, "sponsors": {},
	"team": {}, "topics": {}, "trending": {},
}

// ParseRepositoryURL extracts the owner and name from a github.com URL such
// as "https://github.com/owner/repo/tree/main/docs". ok is false for URLs
// that do not point into a repository.
func ParseRepositoryURL(raw string) (ref model.RepositoryRef, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return model.RepositoryRef{}, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return model.RepositoryRef{}, false
	}

	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return model.RepositoryRef{}, false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return model.RepositoryRef{}, false
	}

	owner := parts[0]
	name := strings.TrimSuffix(parts[1], ".git")
	if _, reserved := reservedOwners[strings.ToLower(owner)]; reserved || name == "" {
		return model.RepositoryRef{}, false
	}

	return model.RepositoryRef{
		Owner: owner,
		Name:  name,
		URL:   "https://github.com/" + owner + "/" + name,
	}, true
}

// ParseCoordinate parses "owner/name" or a repository URL.
func ParseCoordinate(s string) (model.RepositoryRef, bool) {
	if strings.Contains(s, "://") {
		return ParseRepositoryURL(s)
	}
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return model.RepositoryRef{}, false
	}
	return model.RepositoryRef{
		Owner: parts[0],
		Name:  strings.TrimSuffix(parts[1], ".git"),
		URL:   "https://github.com/" + parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"),
	}, true
}
