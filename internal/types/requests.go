package types

import (
	"github.com/go-playground/validator/v10"
)

// UpdateContractRequest is a human correction submitted for a contract.
type UpdateContractRequest struct {
	ExtractedData ExtractedData `json:"extracted_data"`
	HumanApproved bool          `json:"human_approved"`
	ReviewerNotes *string       `json:"reviewer_notes,omitempty" validate:"omitempty,max=4000"`
}

// Validate validates the UpdateContractRequest using the validator.
func (r *UpdateContractRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ContractFilter narrows a contract listing.
type ContractFilter struct {
	Status         *ContractStatus
	RequiresReview *bool
}

// Matches reports whether c passes the filter.
func (f ContractFilter) Matches(c *Contract) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.RequiresReview != nil && c.RequiresHumanReview != *f.RequiresReview {
		return false
	}
	return true
}

// ContractList is the listing response.
type ContractList struct {
	Contracts []Contract `json:"contracts"`
	Total     int        `json:"total"`
}
