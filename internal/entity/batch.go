package entity

import (
	"time"

	"github.com/google/uuid"
)

// DomainResultBatch groups every page visited for a domain, primary page
// first. It is written to the sink as a single unit.
type DomainResultBatch struct {
	ID        uuid.UUID     `json:"id"`
	Domain    string        `json:"domain"`
	Pages     []*PageResult `json:"pages"`
	CreatedAt time.Time     `json:"createdAt"`
}

func NewDomainResultBatch(domain string, pages []*PageResult) *DomainResultBatch {
	return &DomainResultBatch{
		ID:        uuid.New(),
		Domain:    domain,
		Pages:     pages,
		CreatedAt: time.Now(),
	}
}

// Failed reports whether the primary page could not be loaded, in which case
// the batch holds a single error record.
func (b *DomainResultBatch) Failed() bool {
	return len(b.Pages) == 0 || b.Pages[0].Failed()
}

// ContactPages counts the pages on which any contact detail was found.
func (b *DomainResultBatch) ContactPages() int {
	n := 0
	for _, p := range b.Pages {
		if p.Contacts != nil && !p.Contacts.Empty() {
			n++
		}
	}
	return n
}
