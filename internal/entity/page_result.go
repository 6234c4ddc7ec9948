package entity

import "time"

// Response describes the main document response of a navigation.
type Response struct {
	URL           string
	Status        int
	RemoteAddress string
	Headers       map[string]string
	TLS           *TLSInfo
}

// TLSInfo mirrors the certificate details reported by the browser.
type TLSInfo struct {
	Issuer      string    `json:"issuer"`
	Protocol    string    `json:"protocol"`
	SubjectName string    `json:"subjectName"`
	ValidFrom   time.Time `json:"validFrom"`
	ValidTo     time.Time `json:"validTo"`
}

// ArtifactRef points at an artifact persisted outside of the record.
type ArtifactRef struct {
	URL    string `json:"url"`
	Length int    `json:"length"`
}

type Artifacts struct {
	Screenshot  *ArtifactRef `json:"screenshot,omitempty"`
	HTML        *ArtifactRef `json:"html,omitempty"`
	HTMLContent string       `json:"htmlContent,omitempty"`
	Text        string       `json:"text,omitempty"`
}

// PageResult is the outcome of visiting one URL. Either ErrorMessage is set
// and nothing else besides Domain and URL, or the page loaded.
type PageResult struct {
	Domain          string            `json:"domain"`
	URL             string            `json:"url"`
	ResponseURL     string            `json:"responseUrl,omitempty"`
	HTTPStatus      int               `json:"httpStatus,omitempty"`
	RemoteAddress   string            `json:"remoteAddress,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	TLS             *TLSInfo          `json:"tlsInfo,omitempty"`
	Title           string            `json:"title,omitempty"`
	OutboundLinks   []string          `json:"outboundLinks,omitempty"`
	Contacts        *ContactRecord    `json:"contacts,omitempty"`
	Artifacts       Artifacts         `json:"artifacts"`
	LoadedAt        time.Time         `json:"loadedAt"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
}

// NewPageError builds the record of a page that could not be loaded.
func NewPageError(domain, url, message string) *PageResult {
	if message == "" {
		message = "Unknown error"
	}
	return &PageResult{
		Domain:       domain,
		URL:          url,
		LoadedAt:     time.Now(),
		ErrorMessage: message,
	}
}

// Failed reports whether the page is an error record.
func (p *PageResult) Failed() bool {
	return p.ErrorMessage != ""
}
