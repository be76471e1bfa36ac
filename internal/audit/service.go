// Package audit runs the contract pipeline: ingest, extract, validate, decide
// and persist. It also applies human corrections and serves stored records.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/contract-auditor/internal/db"
	"github.com/jonathan/contract-auditor/internal/extraction"
	"github.com/jonathan/contract-auditor/internal/ingestion"
	"github.com/jonathan/contract-auditor/internal/lifecycle"
	"github.com/jonathan/contract-auditor/internal/rules"
	"github.com/jonathan/contract-auditor/internal/types"
)

// Deps are the collaborators of a Service. Store and Extractor are required.
type Deps struct {
	Store     db.Store
	Extractor *extraction.Extractor
	Ingester  *ingestion.Ingester // default: ingestion.NewIngester()
	Rules     *rules.Engine       // default: rules.Default()
	Lifecycle *lifecycle.Manager  // default: threshold 0.7
	Logger    *slog.Logger
}

// DefaultConfidenceThreshold is used when Deps.Lifecycle is nil.
const DefaultConfidenceThreshold = 0.7

// Service is the application-facing entry point of the auditor.
type Service struct {
	store      db.Store
	extractor  *extraction.Extractor
	ingester   *ingestion.Ingester
	rules      *rules.Engine
	lifecycle  *lifecycle.Manager
	correction *CorrectionHandler
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// New creates a Service, filling optional dependencies with defaults.
func New(d Deps) *Service {
	if d.Ingester == nil {
		d.Ingester = ingestion.NewIngester()
	}
	if d.Rules == nil {
		d.Rules = rules.Default()
	}
	if d.Lifecycle == nil {
		d.Lifecycle = lifecycle.NewManager(DefaultConfidenceThreshold)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		store:      d.Store,
		extractor:  d.Extractor,
		ingester:   d.Ingester,
		rules:      d.Rules,
		lifecycle:  d.Lifecycle,
		correction: NewCorrectionHandler(d.Rules, d.Lifecycle),
		logger:     d.Logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Audit runs the whole pipeline over one uploaded document and returns the stored
// record. Only an unreadable document (*ingestion.ExtractionError) or a storage
// failure is an error; degraded extraction is reported through the record itself.
//
// Extraction honours ctx cancellation by degrading. Persistence ignores it, so a
// caller that disconnects still leaves the contract in a decided state. If the
// record cannot be carried to a decided state it is discarded rather than left
// in processing.
func (s *Service) Audit(ctx context.Context, data []byte, fileName string) (*types.Contract, error) {
	start := time.Now()
	persistCtx := context.WithoutCancel(ctx)

	doc, err := s.ingester.Ingest(ctx, fileName, data)
	if err != nil {
		s.logger.Warn("audit.ingest.failed", "file", fileName, "size", len(data), "error", err)
		return nil, err
	}

	now := s.now().UTC()
	c := &types.Contract{
		ID:               s.newID(),
		FileName:         fileName,
		FileSize:         doc.Size,
		FileMIMEType:     doc.MIMEType,
		DocumentHash:     doc.Hash,
		Document:         data,
		RawText:          doc.Text,
		Status:           types.StatusPending,
		ValidationIssues: []types.ValidationIssue{},
		ReviewReasons:    []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Save(persistCtx, c); err != nil {
		s.logger.Error("audit.persist.failed", "contract_id", c.ID, "stage", "create", "error", err)
		return nil, err
	}
	s.logger.Info("audit.start",
		"contract_id", c.ID, "file", fileName, "kind", doc.Kind, "sha256", doc.Hash, "chars", len(doc.Text))

	if err := s.lifecycle.Start(c, s.now().UTC()); err != nil {
		s.discard(persistCtx, c.ID, "start")
		return nil, err
	}
	if err := s.store.Save(persistCtx, c); err != nil {
		s.logger.Error("audit.persist.failed", "contract_id", c.ID, "stage", "start", "error", err)
		s.discard(persistCtx, c.ID, "start")
		return nil, err
	}

	res := s.extractor.Extract(ctx, doc.Text)
	if res.Err != nil {
		s.logger.Warn("audit.extract.degraded",
			"contract_id", c.ID, "outcome", res.Outcome, "confidence", res.Confidence, "error", res.Err)
	}

	validation := s.rules.Validate(res.Data)
	decision, err := s.lifecycle.Complete(c, lifecycle.Outcome{
		Validation: validation,
		Confidence: res.Confidence,
		IsContract: res.IsContract,
	}, s.now().UTC())
	if err != nil {
		s.discard(persistCtx, c.ID, "complete")
		return nil, err
	}

	extracted := res.Data.Clone()
	c.ExtractedData = &extracted
	c.TextTruncated = res.Truncated
	elapsed := int(time.Since(start).Milliseconds())
	c.ProcessingTimeMs = &elapsed

	if err := s.store.Save(persistCtx, c); err != nil {
		s.logger.Error("audit.persist.failed", "contract_id", c.ID, "stage", "complete", "error", err)
		s.discard(persistCtx, c.ID, "complete")
		return nil, err
	}

	s.logger.Info("audit.complete",
		"contract_id", c.ID,
		"status", c.Status,
		"confidence", res.Confidence,
		"outcome", res.Outcome,
		"issues", len(c.ValidationIssues),
		"review_reasons", decision.ReviewReasons,
		"truncated", res.Truncated,
		"elapsed_ms", elapsed,
	)
	return c, nil
}

// Update applies a human correction: a save, or an approval when req.HumanApproved.
func (s *Service) Update(ctx context.Context, id string, req types.UpdateContractRequest) (*types.Contract, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: "request failed validation", Cause: err}
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var result types.ValidationResult
	if req.HumanApproved {
		result, err = s.correction.Approve(c, req.ExtractedData, req.ReviewerNotes)
	} else {
		result, err = s.correction.Save(c, req.ExtractedData, req.ReviewerNotes)
	}
	if err != nil {
		s.logger.Warn("audit.update.refused", "contract_id", id, "status", c.Status, "error", err)
		return nil, err
	}

	if err := s.store.Save(context.WithoutCancel(ctx), c); err != nil {
		s.logger.Error("audit.persist.failed", "contract_id", id, "stage", "update", "error", err)
		return nil, err
	}

	s.logger.Info("audit.update",
		"contract_id", id,
		"approved", req.HumanApproved,
		"override", c.OverrideApproved,
		"status", c.Status,
		"issues", len(result.Issues),
	)
	return c, nil
}

// Get returns the full stored record.
func (s *Service) Get(ctx context.Context, id string) (*types.Contract, error) {
	return s.load(ctx, id)
}

// List returns contract summaries, newest first.
func (s *Service) List(ctx context.Context, filter types.ContractFilter) (*types.ContractList, error) {
	contracts, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &types.ContractList{Contracts: contracts, Total: len(contracts)}, nil
}

// Delete removes a contract. This is an administrative operation; the pipeline never deletes.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return err
	}
	s.logger.Info("audit.delete", "contract_id", id)
	return nil
}

// Text returns the cleaned, untruncated text extracted from the document.
func (s *Service) Text(ctx context.Context, id string) (string, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	return c.RawText, nil
}

// StoredDocument is an original upload.
type StoredDocument struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Document returns the original uploaded bytes.
func (s *Service) Document(ctx context.Context, id string) (*StoredDocument, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StoredDocument{FileName: c.FileName, MIMEType: c.FileMIMEType, Data: c.Document}, nil
}

// Health describes the service's collaborators.
type Health struct {
	Store           bool   `json:"store"`
	StoreError      string `json:"store_error,omitempty"`
	ModelConfigured bool   `json:"model_configured"`
}

// Health pings the store and reports whether a completion model is configured.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Store: true, ModelConfigured: s.extractor.Configured()}
	if err := s.store.Ping(ctx); err != nil {
		h.Store = false
		h.StoreError = err.Error()
	}
	return h
}

// Rules returns the rule table in use.
func (s *Service) Rules() []rules.Rule {
	return s.rules.Rules()
}

// Threshold returns the confidence threshold in use.
func (s *Service) Threshold() float64 {
	return s.lifecycle.Threshold()
}

// discard removes a provisional record whose audit could not finish, so no
// contract is left behind in pending or processing. A failed delete is logged;
// the original error is what the caller sees.
func (s *Service) discard(ctx context.Context, id, stage string) {
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, db.ErrNotFound) {
		s.logger.Error("audit.discard.failed", "contract_id", id, "stage", stage, "error", err)
		return
	}
	s.logger.Warn("audit.discard", "contract_id", id, "stage", stage)
}

func (s *Service) load(ctx context.Context, id string) (*types.Contract, error) {
	c, err := s.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}
	return c, nil
}
