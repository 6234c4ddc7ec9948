package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(strings.TrimSpace(relative))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURL turns a URL into a stable comparison key. Absolute URLs get
// their scheme and host lowercased, default ports, utm_* parameters, trailing
// slashes and fragments removed, and their query sorted. Anything else only
// loses the part after the first '#'. It never fails.
func NormalizeURL(rawURL string) string {
	if normalized, ok := normalizeAbsolute(rawURL); ok {
		return normalized
	}
	if idx := strings.Index(rawURL, "#"); idx > 0 {
		stripped := rawURL[:idx]
		// a malformed fragment is enough to make the parser reject the URL
		if normalized, ok := normalizeAbsolute(stripped); ok {
			return normalized
		}
		return stripped
	}
	return rawURL
}

func normalizeAbsolute(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""

	// mailto:, tel: and friends
	if u.Opaque != "" {
		return u.String(), true
	}
	if u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPorts[u.Scheme] {
		host = joinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	u.Host = host

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")
	u.RawQuery = normalizeQuery(u.RawQuery)
	u.ForceQuery = false

	return u.String(), true
}

func joinHostPort(host, port string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]:" + port
	}
	return host + ":" + port
}

func normalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	for key := range values {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			values.Del(key)
		}
	}
	// Encode sorts by key.
	return values.Encode()
}

// FilterToDomain keeps the http(s) URLs whose host is domain or one of its
// subdomains, dropping any entry found in omit. Input order is preserved and
// unparsable entries are skipped.
func FilterToDomain(urls []string, domain string, omit map[string]struct{}) []string {
	domain = strings.ToLower(domain)
	filtered := make([]string, 0, len(urls))
	for _, candidate := range urls {
		if _, skip := omit[candidate]; skip {
			continue
		}
		u, err := url.Parse(candidate)
		if err != nil || !u.IsAbs() {
			continue
		}
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			continue
		}
		if !InScope(u.Hostname(), domain) {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered
}

// InScope reports whether host equals domain or is a subdomain of it.
func InScope(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
