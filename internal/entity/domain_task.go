package entity

import "strings"

// DomainTask is one unit of work handed out by the queue.
type DomainTask struct {
	Domain string `json:"domain"`
}

// NewDomainTask lowercases the domain and drops surrounding whitespace.
func NewDomainTask(domain string) DomainTask {
	return DomainTask{Domain: strings.ToLower(strings.TrimSpace(domain))}
}

// SeedURL is the bare http URL the crawl of a domain starts from.
func (t DomainTask) SeedURL() string {
	return "http://" + t.Domain
}

// SeedVariants returns the optional alternative entry points of the domain
// in the order they are visited.
func (t DomainTask) SeedVariants(httpsVersion, wwwSubdomain bool) []string {
	var variants []string
	if httpsVersion {
		variants = append(variants, "https://"+t.Domain)
	}
	if wwwSubdomain {
		variants = append(variants, "http://www."+t.Domain)
	}
	if httpsVersion && wwwSubdomain {
		variants = append(variants, "https://www."+t.Domain)
	}
	return variants
}

// CrawlPlanEntry is one extra page scheduled after the primary page.
type CrawlPlanEntry struct {
	URL           string
	IsSeedVariant bool
}
