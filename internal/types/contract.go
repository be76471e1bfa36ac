// Package types provides type definitions for structured data used throughout the contract-auditor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"
)

// Risk score bounds. Any value reaching a validated path is clamped into this range.
const (
	MinRiskScore     = 1
	MaxRiskScore     = 100
	NeutralRiskScore = 50
)

// Party is a named participant in a contract. Order is meaningful.
type Party struct {
	Name string  `json:"name" validate:"required"`
	Role *string `json:"role,omitempty"`
}

// ExtractedData holds the structured facts derived from a contract document.
type ExtractedData struct {
	Parties                []Party `json:"parties" validate:"dive"`
	EffectiveDate          *string `json:"effective_date,omitempty"`
	ContractDurationMonths *int    `json:"contract_duration_months,omitempty" validate:"omitempty,min=0"`
	// ContractDurationRaw is the literal source phrase, kept even when it disagrees with the parsed months.
	ContractDurationRaw *string `json:"contract_duration_raw,omitempty"`
	Jurisdiction        *string `json:"jurisdiction,omitempty"`
	RiskScore           int     `json:"risk_score"`
}

// DefaultExtractedData returns the degraded record used when extraction cannot produce anything.
func DefaultExtractedData() ExtractedData {
	return ExtractedData{
		Parties:   []Party{},
		RiskScore: NeutralRiskScore,
	}
}

// ClampRiskScore forces a risk score into [MinRiskScore, MaxRiskScore].
func ClampRiskScore(score int) int {
	if score < MinRiskScore {
		return MinRiskScore
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// Clone returns a deep copy so callers can't mutate shared pointers.
func (d ExtractedData) Clone() ExtractedData {
	out := ExtractedData{
		Parties:                make([]Party, len(d.Parties)),
		EffectiveDate:          cloneString(d.EffectiveDate),
		ContractDurationMonths: cloneInt(d.ContractDurationMonths),
		ContractDurationRaw:    cloneString(d.ContractDurationRaw),
		Jurisdiction:           cloneString(d.Jurisdiction),
		RiskScore:              d.RiskScore,
	}
	for i, p := range d.Parties {
		out.Parties[i] = Party{Name: p.Name, Role: cloneString(p.Role)}
	}
	return out
}

// Severity grades a validation issue.
type Severity string

// Severity levels
const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// ValidationIssue is a field-scoped finding produced by a validation run.
type ValidationIssue struct {
	Field     string   `json:"field"`
	Rule      string   `json:"rule"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	Reasoning *string  `json:"reasoning,omitempty"`
}

// ValidationResult is the full output of one validation run. A new run replaces it wholesale.
type ValidationResult struct {
	Issues              []ValidationIssue `json:"issues"`
	RequiresHumanReview bool              `json:"requires_human_review"`
	ReviewReasons       []string          `json:"review_reasons"`
}

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

// Lifecycle states, exposed verbatim over the API.
const (
	StatusPending             ContractStatus = "pending"
	StatusProcessing          ContractStatus = "processing"
	StatusApproved            ContractStatus = "approved"
	StatusRequiresHumanReview ContractStatus = "requires_human_review"
	StatusRejected            ContractStatus = "rejected"
)

// AllStatuses lists every lifecycle state.
var AllStatuses = []ContractStatus{
	StatusPending,
	StatusProcessing,
	StatusApproved,
	StatusRequiresHumanReview,
	StatusRejected,
}

// ParseContractStatus converts a raw string into a ContractStatus.
func ParseContractStatus(s string) (ContractStatus, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Contract is the persisted audit record.
type Contract struct {
	ID                  string            `json:"id"`
	FileName            string            `json:"file_name"`
	FileSize            int               `json:"file_size"`
	FileMIMEType        string            `json:"file_mime_type"`
	DocumentHash        string            `json:"document_hash"`
	Document            []byte            `json:"-"`
	RawText             string            `json:"-"`
	TextTruncated       bool              `json:"text_truncated"`
	Status              ContractStatus    `json:"status"`
	ExtractedData       *ExtractedData    `json:"extracted_data,omitempty"`
	ValidationIssues    []ValidationIssue `json:"validation_issues"`
	RequiresHumanReview bool              `json:"requires_human_review"`
	ReviewReasons       []string          `json:"review_reasons"`
	ConfidenceScore     *float64          `json:"confidence_score,omitempty"`
	ProcessingTimeMs    *int              `json:"processing_time_ms,omitempty"`
	HumanApproved       bool              `json:"human_approved"`
	OverrideApproved    bool              `json:"override_approved"`
	ReviewerNotes       *string           `json:"reviewer_notes,omitempty"`
	ReviewedAt          *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	ProcessedAt         *time.Time        `json:"processed_at,omitempty"`
}

// ApplyValidation copies a validation result onto the contract, replacing the previous one.
func (c *Contract) ApplyValidation(result ValidationResult) {
	c.ValidationIssues = append([]ValidationIssue{}, result.Issues...)
	c.ReviewReasons = append([]string{}, result.ReviewReasons...)
	c.RequiresHumanReview = result.RequiresHumanReview
}

// Clone returns a deep copy of the contract.
func (c *Contract) Clone() *Contract {
	out := *c
	out.Document = append([]byte(nil), c.Document...)
	if c.ExtractedData != nil {
		data := c.ExtractedData.Clone()
		out.ExtractedData = &data
	}
	out.ValidationIssues = make([]ValidationIssue, len(c.ValidationIssues))
	for i, issue := range c.ValidationIssues {
		issue.Reasoning = cloneString(issue.Reasoning)
		out.ValidationIssues[i] = issue
	}
	out.ReviewReasons = append([]string{}, c.ReviewReasons...)
	out.ConfidenceScore = cloneFloat(c.ConfidenceScore)
	out.ProcessingTimeMs = cloneInt(c.ProcessingTimeMs)
	out.ReviewerNotes = cloneString(c.ReviewerNotes)
	out.ReviewedAt = cloneTime(c.ReviewedAt)
	out.ProcessedAt = cloneTime(c.ProcessedAt)
	return &out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
