// Package contact finds emails, phone numbers and social profiles in the
// links, text and structured data of a page.
package contact

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/user/contact-crawler/internal/entity"
)

// Source is one document worth of signals, the main frame or a child frame.
type Source struct {
	Text       string
	Links      []string
	Structured []any
}

// Result is the merged record plus any problem met while extracting.
type Result struct {
	Record      *entity.ContactRecord
	Diagnostics []string
}

type Extractor struct {
	uncertainPhones bool
}

type Option func(*Extractor)

// WithUncertainPhones toggles the loose digit pass that feeds PhonesUncertain.
func WithUncertainPhones(enabled bool) Option {
	return func(e *Extractor) {
		e.uncertainPhones = enabled
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{uncertainPhones: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds a record from the text, links and structured data of a single document.
func (e *Extractor) Extract(text string, links []string, structured []any) Result {
	return e.ExtractSources(Source{Text: text, Links: links, Structured: structured})
}

// ExtractSources merges the signals of several documents. Each source is
// read in the order links, text, structured data, and the sources are read
// in the order given. A failure in one source is reported as a diagnostic
// and the remaining sources are still read.
func (e *Extractor) ExtractSources(sources ...Source) Result {
	acc := NewAccumulator()
	var diagnostics []string
	for i, src := range sources {
		if err := e.extractSource(acc, src); err != nil {
			diagnostics = append(diagnostics, fmt.Sprintf("source %d: %v", i, err))
		}
	}
	return Result{Record: acc.Record(), Diagnostics: diagnostics}
}

func (e *Extractor) extractSource(acc *Accumulator, src Source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error occurred while extracting contacts: %v", r)
		}
	}()

	e.fromLinks(acc, src.Links)
	e.fromText(acc, src.Text)
	fromStructured(acc, src.Structured)
	return nil
}

func (e *Extractor) fromLinks(acc *Accumulator, links []string) {
	for _, link := range links {
		link = strings.TrimSpace(link)
		switch {
		case telPrefixRegex.MatchString(link):
			acc.AddPhone(linkBody(telPrefixRegex.ReplaceAllString(link, "")))
		case mailtoPrefix.MatchString(link):
			for _, candidate := range strings.Split(linkBody(mailtoPrefix.ReplaceAllString(link, "")), ",") {
				candidate = strings.TrimSpace(candidate)
				if emailOnlyRegex.MatchString(candidate) {
					acc.AddEmail(candidate)
				}
			}
		default:
			findProfiles(link, acc.addProfile)
		}
	}
}

// linkBody drops the query of a tel: or mailto: target and decodes it.
func linkBody(s string) string {
	if idx := strings.IndexByte(s, '?'); idx >= 0 {
		s = s[:idx]
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	return strings.TrimSpace(s)
}

func (e *Extractor) fromText(acc *Accumulator, text string) {
	if text == "" {
		return
	}
	for _, email := range emailRegex.FindAllString(text, -1) {
		acc.AddEmail(email)
	}
	for _, phone := range phoneRegex.FindAllString(text, -1) {
		if len(phone) >= minPhoneLength {
			acc.AddPhone(phone)
		}
	}
	if e.uncertainPhones {
		for _, phone := range looseDigitsRegex.FindAllString(text, -1) {
			acc.AddUncertainPhone(phone)
		}
	}
	findProfiles(text, acc.addProfile)
}

// fromStructured walks decoded JSON-LD values and trusts every telephone
// property it meets.
func fromStructured(acc *Accumulator, values []any) {
	for _, v := range values {
		walkStructured(acc, v)
	}
}

func walkStructured(acc *Accumulator, v any) {
	switch node := v.(type) {
	case map[string]any:
		for key, value := range node {
			if strings.EqualFold(key, "telephone") {
				addTelephone(acc, value)
				continue
			}
			walkStructured(acc, value)
		}
	case []any:
		for _, item := range node {
			walkStructured(acc, item)
		}
	}
}

func addTelephone(acc *Accumulator, v any) {
	switch tel := v.(type) {
	case string:
		acc.AddPhone(tel)
	case []any:
		for _, item := range tel {
			if s, ok := item.(string); ok {
				acc.AddPhone(s)
			}
		}
	case float64:
		acc.AddPhone(fmt.Sprintf("%.0f", tel))
	}
}
