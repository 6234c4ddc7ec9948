package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/user/contact-crawler/pkg/utils"
	"go.uber.org/zap"
)

// domainRegex finds domain names anywhere in free text.
var domainRegex = regexp.MustCompile(`(?i)` + utils.DomainPattern)

const maxDomainsFileSize = 64 << 20

// Source describes where the domains of a run come from.
type Source struct {
	// Domains is free text; every domain name in it is used.
	Domains string
	// FileURL points at a text file with domain names, one or more per line.
	FileURL string
	// FileOffset skips that many domains of the file.
	FileOffset int
	// FileCount limits the number of file domains used. Zero means all.
	FileCount int
}

// HTTPDoer is implemented by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver turns a Source into a list of domains.
type Resolver struct {
	client HTTPDoer
	logger *zap.Logger
}

func NewResolver(client HTTPDoer, logger *zap.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Resolver{client: client, logger: logger}
}

// Resolve returns the lowercased domains of the inline text followed by the
// selected slice of the file, without duplicates and in first-seen order.
func (r *Resolver) Resolve(ctx context.Context, src Source) ([]string, error) {
	fromInput := ExtractDomains(src.Domains)

	var fromFile []string
	if src.FileURL != "" {
		all, err := r.download(ctx, src.FileURL)
		if err != nil {
			return nil, fmt.Errorf("failed to download domains file %s: %w", src.FileURL, err)
		}
		fromFile = Slice(all, src.FileOffset, src.FileCount)
		r.logger.Info("domains file loaded",
			zap.String("url", src.FileURL),
			zap.Int("total", len(all)),
			zap.Int("selected", len(fromFile)),
		)
	}

	domains := dedup(append(fromInput, fromFile...))
	r.logger.Info("input domains resolved", zap.Int("count", len(domains)))
	return domains, nil
}

func (r *Resolver) download(ctx context.Context, fileURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var domains []string
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxDomainsFileSize))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		domains = append(domains, ExtractDomains(scanner.Text())...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return domains, nil
}

// ExtractDomains returns every domain name found in s, lowercased.
func ExtractDomains(s string) []string {
	matches := domainRegex.FindAllString(s, -1)
	for i, m := range matches {
		matches[i] = strings.ToLower(m)
	}
	return matches
}

// Slice applies an offset and an optional count to domains.
func Slice(domains []string, offset, count int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(domains) {
		return nil
	}
	end := len(domains)
	if count > 0 && offset+count < end {
		end = offset + count
	}
	return domains[offset:end]
}

func dedup(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
