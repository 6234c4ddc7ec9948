package utils

import "regexp"

// DomainPattern matches a host name made of one or more labels followed by
// an alphabetic top level domain, e.g. "shop.example.co.uk".
const DomainPattern = `(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,30}`

var domainOnlyRegex = regexp.MustCompile(`(?i)^` + DomainPattern + `$`)

// IsDomain reports whether s is a bare domain name.
func IsDomain(s string) bool {
	return domainOnlyRegex.MatchString(s)
}
