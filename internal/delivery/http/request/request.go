package request

// SubmitDomainsRequest queues one or more domains. Domain and Domains may be combined.
type SubmitDomainsRequest struct {
	Domain  string   `json:"domain"`
	Domains []string `json:"domains"`
	Force   bool     `json:"force"`
}

// All returns every domain named by the request in order.
func (r SubmitDomainsRequest) All() []string {
	all := make([]string, 0, len(r.Domains)+1)
	if r.Domain != "" {
		all = append(all, r.Domain)
	}
	return append(all, r.Domains...)
}
