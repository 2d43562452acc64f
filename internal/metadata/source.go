package metadata

import (
	"strings"

	"github.com/google/uuid"
)

// sourceHashLength is the number of hex digits of the name hash kept in a
// source id.
const sourceHashLength = 12

// SourceID derives the source id of a page URL or repository path.
// The readable part is Slug(name), which maps "/a-b" and "/a/b" to the same
// token, so a short name-based hash of the untouched name is appended to
// keep distinct sources apart.
func SourceID(name string) string {
	sum := strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String(), "-", "")
	sum = sum[:sourceHashLength]
	if slug := Slug(name); slug != "" {
		return slug + "-" + sum
	}
	return sum
}
