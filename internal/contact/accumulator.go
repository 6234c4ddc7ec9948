package contact

import (
	"sort"
	"strings"

	"github.com/user/contact-crawler/internal/entity"
)

type set map[string]struct{}

func (s set) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Accumulator merges contact signals from any number of sources. Every field
// is a set, so the merge is a union and the order of additions does not
// change the resulting record.
type Accumulator struct {
	emails     set
	phones     set
	uncertain  set
	linkedIns  set
	twitters   set
	instagrams set
	facebooks  set
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		emails:     set{},
		phones:     set{},
		uncertain:  set{},
		linkedIns:  set{},
		twitters:   set{},
		instagrams: set{},
		facebooks:  set{},
	}
}

// AddEmail stores the address lowercased.
func (a *Accumulator) AddEmail(email string) {
	a.emails.add(strings.ToLower(strings.TrimSpace(email)))
}

// AddPhone stores the number exactly as it was written.
func (a *Accumulator) AddPhone(phone string) {
	a.phones.add(strings.TrimSpace(phone))
}

// AddUncertainPhone stores a number found by the loose pass.
func (a *Accumulator) AddUncertainPhone(phone string) {
	a.uncertain.add(strings.TrimSpace(phone))
}

func (a *Accumulator) addProfile(p platform, profile string) {
	switch p {
	case linkedIn:
		a.linkedIns.add(profile)
	case twitter:
		a.twitters.add(profile)
	case instagram:
		a.instagrams.add(profile)
	case facebook:
		a.facebooks.add(profile)
	}
}

// Record builds the final record. Uncertain phones whose digits are already
// part of a confident phone are dropped.
func (a *Accumulator) Record() *entity.ContactRecord {
	confirmed := make([]string, 0, len(a.phones))
	for p := range a.phones {
		confirmed = append(confirmed, digitsOnly(p))
	}
	uncertain := set{}
	for p := range a.uncertain {
		if _, ok := a.phones[p]; ok {
			continue
		}
		if coveredBy(digitsOnly(p), confirmed) {
			continue
		}
		uncertain.add(p)
	}

	return &entity.ContactRecord{
		Emails:          a.emails.sorted(),
		Phones:          a.phones.sorted(),
		PhonesUncertain: uncertain.sorted(),
		LinkedIns:       a.linkedIns.sorted(),
		Twitters:        a.twitters.sorted(),
		Instagrams:      a.instagrams.sorted(),
		Facebooks:       a.facebooks.sorted(),
	}
}

func coveredBy(digits string, confirmed []string) bool {
	if digits == "" {
		return false
	}
	for _, c := range confirmed {
		if strings.Contains(c, digits) {
			return true
		}
	}
	return false
}
