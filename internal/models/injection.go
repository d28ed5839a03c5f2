package models

// EvidenceKind says how a parameter was judged vulnerable
type EvidenceKind string

const (
	EvidenceErrorSignature   EvidenceKind = "error-signature"
	EvidenceLengthDivergence EvidenceKind = "length-divergence"
)

// VulnerableParam records the first payload that made a parameter diverge
type VulnerableParam struct {
	Parameter    string       `json:"parameter"`
	Payload      string       `json:"payload"`
	EvidenceType EvidenceKind `json:"evidence_type"`
	Evidence     string       `json:"evidence"`
	DBMS         string       `json:"dbms,omitempty"`
}

// InjectionFinding is the result of the differential probe on one URL
type InjectionFinding struct {
	URL              string            `json:"url"`
	Vulnerable       bool              `json:"vulnerable"`
	VulnerableParams []VulnerableParam `json:"vulnerable_params"`
	Severity         string            `json:"severity,omitempty"`
}

// GetURL returns the tested URL
func (f InjectionFinding) GetURL() string {
	return f.URL
}
