package contact

import (
	"regexp"
	"strings"
)

type platform int

const (
	linkedIn platform = iota
	twitter
	instagram
	facebook
)

// profileShape describes how a profile URL of one platform looks. Go regexps
// have no lookarounds, so the boundary and reserved-path rules live in code.
type profileShape struct {
	platform  platform
	regex     *regexp.Regexp
	minLength int
	maxLength int
	reserved  map[string]struct{}
	// trim removes trailing characters that are allowed inside a handle but
	// usually belong to the surrounding sentence.
	trim string
}

func reservedPaths(paths ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

var profileShapes = []profileShape{
	{
		platform:  linkedIn,
		regex:     regexp.MustCompile(`(?i)(?:https?://)?((?:[a-z]{2,3}\.)?linkedin\.com)/((?:in|company|pub)/[a-z0-9\-_%=]+)`),
		minLength: 2,
		maxLength: 60,
	},
	{
		platform:  twitter,
		regex:     regexp.MustCompile(`(?i)(?:https?://)?((?:www\.|mobile\.)?(?:twitter\.com|x\.com))/@?([a-z0-9_]+)`),
		minLength: 1,
		maxLength: 15,
		reserved: reservedPaths("oauth", "account", "tos", "privacy", "signup", "home", "hashtag", "search",
			"login", "widgets", "i", "intent", "share", "download", "explore", "settings", "messages",
			"notifications", "compose", "logout"),
	},
	{
		platform:  instagram,
		regex:     regexp.MustCompile(`(?i)(?:https?://)?((?:www\.)?(?:instagram\.com|instagr\.am))/([a-z0-9_.]+)`),
		minLength: 2,
		maxLength: 30,
		reserved: reservedPaths("explore", "_n", "_u", "p", "reel", "reels", "stories", "accounts", "about",
			"developer", "legal", "direct", "tv"),
		trim: ".",
	},
	{
		platform:  facebook,
		regex:     regexp.MustCompile(`(?i)(?:https?://)?((?:www\.|m\.)?(?:facebook\.com|fb\.com))/(profile\.php\?id=[0-9]{3,20}|[a-z0-9.]+)`),
		minLength: 5,
		maxLength: 51,
		reserved: reservedPaths("rsrc.php", "apps", "groups", "events", "l.php", "friends", "images", "photo.php",
			"chat", "ajax", "dyn", "common.php", "share.php", "sharer.php", "login.php", "profile.php", "pages",
			"people", "help", "policies", "privacy", "watch", "marketplace", "gaming", "hashtag", "plugins",
			"dialog", "business", "login", "recover"),
		trim: ".",
	},
}

// findProfiles returns canonical profile URLs of every platform found in s.
func findProfiles(s string, add func(platform, string)) {
	for _, shape := range profileShapes {
		for _, loc := range shape.regex.FindAllStringSubmatchIndex(s, -1) {
			if loc[0] > 0 && isHostChar(s[loc[0]-1]) {
				continue
			}
			// the handle pattern is greedy, so a longer run means the handle is too long
			if loc[1] < len(s) && isHandleChar(shape.platform, s[loc[1]]) {
				continue
			}
			host := strings.ToLower(s[loc[2]:loc[3]])
			path := strings.ToLower(s[loc[4]:loc[5]])
			if profile, ok := shape.canonical(host, path); ok {
				add(shape.platform, profile)
			}
		}
	}
}

func (p profileShape) canonical(host, path string) (string, bool) {
	if p.trim != "" {
		path = strings.TrimRight(path, p.trim)
	}
	handle := path
	if p.platform == linkedIn {
		handle = path[strings.Index(path, "/")+1:]
	}
	if p.platform == facebook && strings.HasPrefix(path, "profile.php?id=") {
		return "https://" + host + "/" + path, true
	}
	if len(handle) < p.minLength || len(handle) > p.maxLength {
		return "", false
	}
	if _, reserved := p.reserved[handle]; reserved {
		return "", false
	}
	return "https://" + host + "/" + path, true
}

func isHostChar(c byte) bool {
	return c == '.' || c == '-' || c == '_' || isAlnum(c)
}

func isHandleChar(p platform, c byte) bool {
	switch p {
	case linkedIn:
		return isAlnum(c) || strings.IndexByte("-_%=", c) >= 0
	case twitter:
		return isAlnum(c) || c == '_'
	default:
		return isAlnum(c) || c == '_' || c == '.'
	}
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
