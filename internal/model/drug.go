package model

import "encoding/json"

// Sentinel is the placeholder used when a field's true value is unavailable
const Sentinel = "N/A"

// NoDrugInfoMessage is sent in place of drugInfo when the lookup found nothing
const NoDrugInfoMessage = "no detailed drug info found"

// DrugMetadata is the canonical drug record. All four fields are always present.
type DrugMetadata struct {
	GenericName string   `json:"generic_name"`
	DosageForm  string   `json:"dosage_form"`
	ProductType string   `json:"product_type"`
	Route       []string `json:"route"`
}

// EnrichmentResult is the outcome of one pipeline run.
// A nil DrugInfo means the lookup was attempted and returned nothing.
type EnrichmentResult struct {
	Lines    []string      `json:"lines"`
	DrugInfo *DrugMetadata `json:"drugInfo"`
}

// Subject returns the canonical subject name (first line)
func (r *EnrichmentResult) Subject() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return r.Lines[0]
}

// HasDrugInfo reports whether the lookup produced a record
func (r *EnrichmentResult) HasDrugInfo() bool {
	return r.DrugInfo != nil
}

// MarshalJSON renders a missing DrugInfo as NoDrugInfoMessage so callers can tell
// "looked up and found nothing" apart from a record full of placeholders.
func (r EnrichmentResult) MarshalJSON() ([]byte, error) {
	var drugInfo any = NoDrugInfoMessage
	if r.DrugInfo != nil {
		drugInfo = r.DrugInfo
	}
	return json.Marshal(struct {
		Lines    []string `json:"lines"`
		DrugInfo any      `json:"drugInfo"`
	}{
		Lines:    r.Lines,
		DrugInfo: drugInfo,
	})
}
