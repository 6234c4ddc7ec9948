package contact

import (
	"regexp"
	"strings"
)

// emailPattern accepts a dot-atom or quoted local part and either a host name
// or a bracketed IPv4 literal.
const emailPattern = `(?:[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*` +
	`|"(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21\x23-\x5b\x5d-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*")` +
	`@(?:(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?` +
	`|\[(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}` +
	`(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?|[a-z0-9-]*[a-z0-9]:(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21-\x5a\x53-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])+)\])`

// phoneShapes is ordered: for the same start position the first shape that
// matches wins, so longer groupings come before their prefixes.
var phoneShapes = []string{
	`[0-9]{6,15}`, // 775123456

	`[0-9]{2,4}-[0-9]{2,4}-[0-9]{2,4}-[0-9]{2,6}`, // 413-577-1234-564
	`[0-9]{2,4}-[0-9]{2,4}-[0-9]{2,6}`,            // 413-577-1234
	`[0-9]{2,4}-[0-9]{2,6}`,                       // 413-577

	`[0-9]{2,4}\.[0-9]{2,4}\.[0-9]{2,4}\.[0-9]{2,6}`, // 413.577.1234.564
	`[0-9]{2,4}\.[0-9]{2,4}\.[0-9]{2,6}`,             // 413.577.1234
	`[0-9]{2,4}\.[0-9]{2,6}`,                         // 413.577

	`[0-9]{2,4} [0-9]{2,4} [0-9]{2,4} [0-9]{2,6}`, // 413 577 1234 564
	`[0-9]{2,4} [0-9]{2,4} [0-9]{2,6}`,            // 413 577 1234

	`(?:[0-9]{1,4} ?)?\([0-9]{2,4}\) ?[0-9]{2,4}(?: ?-)? ?[0-9]{2,6}`, // 1 (413) 555-2378, (303) 494-2320
}

// minPhoneLength drops matches that are most likely not phone numbers.
const minPhoneLength = 7

var (
	emailRegex       = regexp.MustCompile(`(?i)` + emailPattern)
	emailOnlyRegex   = regexp.MustCompile(`(?i)^` + emailPattern + `$`)
	phoneRegex       = regexp.MustCompile(buildPhonePattern(phoneShapes))
	looseDigitsRegex = regexp.MustCompile(`(?:\+|\b)[0-9](?:[ \-./()]?[0-9]){6,14}\b`)
	telPrefixRegex   = regexp.MustCompile(`(?i)^tel:/?/?`)
	mailtoPrefix     = regexp.MustCompile(`(?i)^mailto:`)
)

// buildPhonePattern allows every shape to be prefixed by '00' or '+'.
func buildPhonePattern(shapes []string) string {
	prefixed := make([]string, len(shapes))
	for i, shape := range shapes {
		prefixed[i] = `(?:00|\+)?` + shape
	}
	return `(?:` + strings.Join(prefixed, `|`) + `)`
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
