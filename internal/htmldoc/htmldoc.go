// Package htmldoc reads the parts of a rendered HTML document that the
// browser does not hand out directly.
package htmldoc

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/contact-crawler/pkg/utils"
)

// Document wraps a parsed HTML page.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse reads htmlContent. baseURL is used to resolve relative references
// and may be empty.
func Parse(htmlContent, baseURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	d := &Document{doc: doc}
	if baseURL != "" {
		if base, err := url.Parse(baseURL); err == nil && base.IsAbs() {
			d.base = base
		}
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok && d.base != nil {
		if resolved, err := url.Parse(strings.TrimSpace(href)); err == nil {
			d.base = d.base.ResolveReference(resolved)
		}
	}
	return d, nil
}

func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// JSONLD decodes every application/ld+json script. Scripts that fail to
// decode are reported and skipped.
func (d *Document) JSONLD() ([]any, []error) {
	var (
		values []any
		errs   []error
	)
	d.doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			errs = append(errs, fmt.Errorf("json-ld script %d: %w", i, err))
			return
		}
		values = append(values, v)
	})
	return values, errs
}

// MetaRefreshTargets returns the absolute targets of refresh meta tags.
func (d *Document) MetaRefreshTargets() []string {
	var targets []string
	d.doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			return
		}
		content, _ := s.Attr("content")
		if target := refreshTarget(content); target != "" {
			if abs, ok := d.absolute(target); ok {
				targets = append(targets, abs)
			}
		}
	})
	return targets
}

// refreshTarget pulls the URL out of a "5; url=/next" style content value.
func refreshTarget(content string) string {
	_, rest, found := strings.Cut(content, ";")
	if !found {
		_, rest, found = strings.Cut(content, ",")
		if !found {
			return ""
		}
	}
	rest = strings.TrimSpace(rest)
	if len(rest) >= 4 && strings.EqualFold(rest[:3], "url") {
		rest = strings.TrimSpace(rest[3:])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "="))
	}
	return strings.Trim(rest, `"' `)
}

// Links returns the href of every anchor, resolved against the document
// base. Relative links are dropped when there is no base.
func (d *Document) Links() []string {
	var links []string
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if abs, ok := d.absolute(href); ok {
			links = append(links, abs)
		}
	})
	return links
}

// Text returns the visible text of the body with whitespace collapsed.
func (d *Document) Text() string {
	body := d.doc.Find("body").Clone()
	if body.Length() == 0 {
		body = d.doc.Selection.Clone()
	}
	body.Find("script, style, noscript, template").Remove()

	var b strings.Builder
	body.Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
		b.WriteByte(' ')
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func (d *Document) absolute(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.IsAbs() {
		return ref, true
	}
	if d.base == nil {
		return "", false
	}
	abs, err := utils.ToAbsoluteURL(d.base, ref)
	if err != nil {
		return "", false
	}
	return abs, true
}
