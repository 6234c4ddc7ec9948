package usecase

import (
	"net/url"
	"slices"
	"strings"
)

const contactPathMarker = "/contact"

// PrioritizeSublinks orders candidate links so that pages whose path
// contains "/contact" (case-sensitive) come first. Links within each group are sorted
// lexicographically. The input is left untouched.
func PrioritizeSublinks(urls []string) []string {
	out := slices.Clone(urls)
	slices.SortStableFunc(out, func(a, b string) int {
		ca, cb := hasContactPath(a), hasContactPath(b)
		switch {
		case ca && !cb:
			return -1
		case cb && !ca:
			return 1
		}
		return strings.Compare(a, b)
	})
	return out
}

func hasContactPath(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.EscapedPath()
	}
	return strings.Contains(path, contactPathMarker)
}
