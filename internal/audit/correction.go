package audit

import (
	"time"

	"github.com/jonathan/contract-auditor/internal/lifecycle"
	"github.com/jonathan/contract-auditor/internal/rules"
	"github.com/jonathan/contract-auditor/internal/types"
)

// CorrectionHandler applies human edits to a contract. It re-runs the same rule
// engine the pipeline uses, so a corrected record is judged exactly like an
// extracted one.
type CorrectionHandler struct {
	rules     *rules.Engine
	lifecycle *lifecycle.Manager
	now       func() time.Time
}

// NewCorrectionHandler creates a CorrectionHandler.
func NewCorrectionHandler(engine *rules.Engine, manager *lifecycle.Manager) *CorrectionHandler {
	return &CorrectionHandler{rules: engine, lifecycle: manager, now: time.Now}
}

// Save replaces the extracted data, re-validates and leaves status and
// human_approved untouched.
func (h *CorrectionHandler) Save(c *types.Contract, data types.ExtractedData, notes *string) (types.ValidationResult, error) {
	edited := normalizeEdit(data)
	result := h.rules.Validate(edited)
	if err := h.lifecycle.Save(c, result, notes, h.now().UTC()); err != nil {
		return result, err
	}
	c.ExtractedData = &edited
	return result, nil
}

// Approve is Save followed by the approval transition. Remaining issues turn
// the approval into a recorded override.
func (h *CorrectionHandler) Approve(c *types.Contract, data types.ExtractedData, notes *string) (types.ValidationResult, error) {
	edited := normalizeEdit(data)
	result := h.rules.Validate(edited)
	if err := h.lifecycle.Approve(c, result, notes, h.now().UTC()); err != nil {
		return result, err
	}
	c.ExtractedData = &edited
	return result, nil
}

// normalizeEdit copies data and clamps the risk score. Nothing else is
// changed, so saved data loads back as submitted.
func normalizeEdit(data types.ExtractedData) types.ExtractedData {
	out := data.Clone()
	out.RiskScore = types.ClampRiskScore(out.RiskScore)
	return out
}
