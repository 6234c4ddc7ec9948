package entity

// ContactRecord holds the contact details found on one page. Every field is
// a sorted set without duplicates.
type ContactRecord struct {
	Emails          []string `json:"emails"`
	Phones          []string `json:"phones"`
	PhonesUncertain []string `json:"phonesUncertain"`
	LinkedIns       []string `json:"linkedIns"`
	Twitters        []string `json:"twitters"`
	Instagrams      []string `json:"instagrams"`
	Facebooks       []string `json:"facebooks"`
}

// Empty reports whether nothing was found.
func (r *ContactRecord) Empty() bool {
	return len(r.Emails)+len(r.Phones)+len(r.PhonesUncertain)+
		len(r.LinkedIns)+len(r.Twitters)+len(r.Instagrams)+len(r.Facebooks) == 0
}
