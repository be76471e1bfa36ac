// Package lifecycle owns contract status: which transitions are allowed and
// how extraction and validation outcomes map to a status.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/contract-auditor/internal/types"
)

// Review reasons added by the lifecycle rather than the rule table.
const (
	ReasonLowConfidence = "low extraction confidence"
	ReasonNotAContract  = "document is not a contract"
)

// OverridePrefix marks reviewer notes recorded with an override approval.
const OverridePrefix = "[override]"

// ErrNotesRequired is returned when an approval would override open issues without reviewer notes.
var ErrNotesRequired = errors.New("override approval requires reviewer notes")

// transitions lists the allowed target states for each state.
var transitions = map[types.ContractStatus][]types.ContractStatus{
	types.StatusPending:             {types.StatusProcessing},
	types.StatusProcessing:          {types.StatusApproved, types.StatusRequiresHumanReview, types.StatusRejected},
	types.StatusRequiresHumanReview: {types.StatusRequiresHumanReview, types.StatusApproved},
	types.StatusApproved:            {types.StatusApproved},
	types.StatusRejected:            {types.StatusRejected, types.StatusApproved},
}

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From types.ContractStatus
	To   types.ContractStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed", e.From, e.To)
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to types.ContractStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves c to the given status or returns a *TransitionError.
func Transition(c *types.Contract, to types.ContractStatus) error {
	if !CanTransition(c.Status, to) {
		return &TransitionError{From: c.Status, To: to}
	}
	c.Status = to
	return nil
}

// Editable reports whether a human correction may be applied in status s.
// Contracts still in the pipeline are not editable.
func Editable(s types.ContractStatus) bool {
	return s != types.StatusPending && s != types.StatusProcessing
}

// Outcome is what the pipeline knows once extraction and validation are done.
type Outcome struct {
	Validation types.ValidationResult
	Confidence float64
	IsContract bool
}

// Decision is the status chosen for an Outcome, with the contract-level review verdict.
type Decision struct {
	Status              types.ContractStatus
	RequiresHumanReview bool
	ReviewReasons       []string
}

// Manager decides statuses against a confidence threshold.
type Manager struct {
	threshold float64
}

// NewManager creates a Manager. Confidence strictly below threshold forces review.
func NewManager(threshold float64) *Manager {
	return &Manager{threshold: threshold}
}

// Threshold returns the configured confidence threshold.
func (m *Manager) Threshold() float64 {
	return m.threshold
}

// Decide maps an outcome to a status. It never auto-approves an uncertain contract:
// any rule match or weak confidence yields requires_human_review. A document the
// model marked as not a contract is rejected, but only when the extraction is confident.
func (m *Manager) Decide(o Outcome) Decision {
	d := Decision{
		RequiresHumanReview: o.Validation.RequiresHumanReview,
		ReviewReasons:       append([]string{}, o.Validation.ReviewReasons...),
	}

	lowConfidence := o.Confidence < m.threshold
	if lowConfidence {
		d.RequiresHumanReview = true
		d.ReviewReasons = append(d.ReviewReasons, ReasonLowConfidence)
	}

	switch {
	case !o.IsContract && !lowConfidence:
		d.Status = types.StatusRejected
		d.ReviewReasons = append(d.ReviewReasons, ReasonNotAContract)
	case d.RequiresHumanReview || len(o.Validation.Issues) > 0:
		d.RequiresHumanReview = true
		d.Status = types.StatusRequiresHumanReview
	default:
		d.Status = types.StatusApproved
	}
	return d
}

// Start moves a freshly created contract into processing.
func (m *Manager) Start(c *types.Contract, now time.Time) error {
	if err := Transition(c, types.StatusProcessing); err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

// Complete applies the decision for o to a processing contract.
func (m *Manager) Complete(c *types.Contract, o Outcome, now time.Time) (Decision, error) {
	d := m.Decide(o)
	if err := Transition(c, d.Status); err != nil {
		return d, err
	}

	c.ApplyValidation(o.Validation)
	c.RequiresHumanReview = d.RequiresHumanReview
	c.ReviewReasons = d.ReviewReasons
	confidence := o.Confidence
	c.ConfidenceScore = &confidence
	c.UpdatedAt = now
	return d, nil
}

// Save records a human edit that does not ask for approval. Status and
// human_approved are left as they are; an override flag is kept only while the
// edited record still has issues for it to cover.
func (m *Manager) Save(c *types.Contract, result types.ValidationResult, notes *string, now time.Time) error {
	if !Editable(c.Status) {
		return &TransitionError{From: c.Status, To: c.Status}
	}
	c.ApplyValidation(result)
	c.OverrideApproved = c.OverrideApproved && (result.RequiresHumanReview || len(result.Issues) > 0)
	if notes != nil {
		c.ReviewerNotes = normalizeNotes(*notes)
	}
	c.ReviewedAt = &now
	c.UpdatedAt = now
	return nil
}

// Approve records a human approval after re-validation. A clean result approves
// directly. When issues remain the approval is an override: it needs reviewer
// notes, which are stored with OverridePrefix, and sets OverrideApproved.
func (m *Manager) Approve(c *types.Contract, result types.ValidationResult, notes *string, now time.Time) error {
	if !CanTransition(c.Status, types.StatusApproved) {
		return &TransitionError{From: c.Status, To: types.StatusApproved}
	}

	override := result.RequiresHumanReview || len(result.Issues) > 0
	var recorded *string
	if notes != nil {
		recorded = normalizeNotes(*notes)
	}
	if override {
		if recorded == nil {
			return ErrNotesRequired
		}
		marked := *recorded
		if !strings.HasPrefix(marked, OverridePrefix) {
			marked = OverridePrefix + " " + marked
		}
		recorded = &marked
	}

	c.Status = types.StatusApproved
	c.ApplyValidation(result)
	c.HumanApproved = true
	c.OverrideApproved = override
	if recorded != nil || notes != nil {
		c.ReviewerNotes = recorded
	}
	c.ProcessedAt = &now
	c.ReviewedAt = &now
	c.UpdatedAt = now
	return nil
}

func normalizeNotes(notes string) *string {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
