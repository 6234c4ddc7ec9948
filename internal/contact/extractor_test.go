package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PhoneFromText(t *testing.T) {
	res := NewExtractor().Extract("Call us: +1 (413) 555-2378 today", nil, nil)

	require.NotNil(t, res.Record)
	assert.Contains(t, res.Record.Phones, "+1 (413) 555-2378")
	for _, p := range append(res.Record.Phones, res.Record.PhonesUncertain...) {
		assert.GreaterOrEqual(t, len(p), minPhoneLength)
	}
	assert.Empty(t, res.Record.PhonesUncertain, "digits already covered by a confident phone")
	assert.Empty(t, res.Diagnostics)
}

func TestExtract_PhoneShapes(t *testing.T) {
	text := `
775123456
00420775123456
413-577-1234
981-413-777-8888
413.233.2343
401 311 7898
1(413)555-2378
(303) 494-2320
12-34
`
	res := NewExtractor(WithUncertainPhones(false)).Extract(text, nil, nil)

	assert.ElementsMatch(t, []string{
		"775123456",
		"00420775123456",
		"413-577-1234",
		"981-413-777-8888",
		"413.233.2343",
		"401 311 7898",
		"1(413)555-2378",
		"(303) 494-2320",
	}, res.Record.Phones)
	assert.Empty(t, res.Record.PhonesUncertain)
}

func TestExtract_TelLinks(t *testing.T) {
	links := []string{
		"tel:4135552378",
		"tel://+420775123456",
		"TEL:/00420775000000",
		"tel:+1%20413%20555%200000?ext=12",
	}
	res := NewExtractor().Extract("", links, nil)

	assert.Equal(t, []string{"+1 413 555 0000", "+420775123456", "00420775000000", "4135552378"}, res.Record.Phones)
}

func TestExtract_MailtoLinks(t *testing.T) {
	links := []string{
		"mailto:not-an-email",
		"mailto:Info@Example.com?subject=Hello",
		"mailto:a@example.org,b@example.org",
		"mailto:admin@[192.168.0.1]",
		"MAILTO:",
	}
	res := NewExtractor().Extract("", links, nil)

	assert.Equal(t, []string{"a@example.org", "admin@[192.168.0.1]", "b@example.org", "info@example.com"}, res.Record.Emails)
}

func TestExtract_InvalidMailtoKeepsEmailsEmpty(t *testing.T) {
	res := NewExtractor().Extract("", []string{"mailto:not-an-email"}, nil)
	assert.Empty(t, res.Record.Emails)
}

func TestExtract_EmailsFromText(t *testing.T) {
	res := NewExtractor().Extract("Write to John.Doe@Example.com or sales@[192.168.0.1].", nil, nil)

	assert.Equal(t, []string{"john.doe@example.com", "sales@[192.168.0.1]"}, res.Record.Emails)
}

func TestExtract_StructuredTelephone(t *testing.T) {
	structured := []any{
		map[string]any{"@type": "Organization", "telephone": "555-0000"},
		map[string]any{
			"@graph": []any{
				map[string]any{"@type": "LocalBusiness", "telephone": []any{"+44 20 1234 5678"}},
			},
		},
	}
	res := NewExtractor().Extract("no digits here", nil, structured)

	assert.Contains(t, res.Record.Phones, "555-0000")
	assert.Contains(t, res.Record.Phones, "+44 20 1234 5678")
}

func TestExtract_SocialProfiles(t *testing.T) {
	links := []string{
		"https://www.linkedin.com/in/JaneDoe/",
		"https://twitter.com/share",
		"https://twitter.com/acme",
		"https://www.facebook.com/sharer.php?u=x",
		"https://facebook.com/acmecorp",
		"https://instagram.com/acme.co/",
		"http://mytwitter.com/abc",
	}
	res := NewExtractor().Extract("Follow instagram.com/acme.co and linkedin.com/company/acme-inc.", links, nil)

	assert.Equal(t, []string{"https://linkedin.com/company/acme-inc", "https://www.linkedin.com/in/janedoe"}, res.Record.LinkedIns)
	assert.Equal(t, []string{"https://twitter.com/acme"}, res.Record.Twitters)
	assert.Equal(t, []string{"https://facebook.com/acmecorp"}, res.Record.Facebooks)
	assert.Equal(t, []string{"https://instagram.com/acme.co"}, res.Record.Instagrams)
}

func TestExtract_UncertainPhones(t *testing.T) {
	res := NewExtractor().Extract("Order no. 2005/11/22", nil, nil)

	assert.Empty(t, res.Record.Phones)
	assert.Equal(t, []string{"2005/11/22"}, res.Record.PhonesUncertain)

	res = NewExtractor(WithUncertainPhones(false)).Extract("Order no. 2005/11/22", nil, nil)
	assert.Empty(t, res.Record.PhonesUncertain)
}

func TestExtract_NoPhoneInBothSets(t *testing.T) {
	res := NewExtractor().Extract("4135552378 or 413-555-2378 or 2005/11/22", []string{"tel:2005/11/22"}, nil)

	phones := map[string]bool{}
	for _, p := range res.Record.Phones {
		phones[p] = true
	}
	for _, p := range res.Record.PhonesUncertain {
		assert.False(t, phones[p], "%q is in both sets", p)
	}
	assert.NotContains(t, res.Record.PhonesUncertain, "4135552378")
}

func TestExtractSources_OrderDoesNotChangeRecord(t *testing.T) {
	main := Source{Text: "info@example.com", Links: []string{"tel:4135552378"}}
	frame := Source{Text: "Call 775123456", Links: []string{"https://twitter.com/acme"}}

	e := NewExtractor()
	a := e.ExtractSources(main, frame)
	b := e.ExtractSources(frame, main)

	assert.Equal(t, a.Record, b.Record)
	assert.Equal(t, []string{"4135552378", "775123456"}, a.Record.Phones)
}
