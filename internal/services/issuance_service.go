// Package services – IssuanceService
//
// This file implements the IssuanceService, the coordinator of the contract
// issuance pipeline: validate → build placeholders → hash → reuse-or-render
// → persist. Issuance is idempotent on the canonical content hash: the same
// template and payload always resolve to the same contract, no matter how
// often (or how concurrently) the request is repeated. Draft generation
// shares the pipeline but always renders fresh and persists nothing.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arriendofacil/go-contract-backend/internal/contract"
	"github.com/arriendofacil/go-contract-backend/internal/domain"
)

// ContractRepo defines the repository contract required by IssuanceService.
type ContractRepo interface {
	// InsertContract persists an issued contract; a (template, hash)
	// conflict with another issued row returns repo.ErrDuplicate.
	InsertContract(ctx context.Context, db *gorm.DB, templateID, templateVersion, contentHash, pdfObject, createdBy string) (*domain.Contract, error)

	// FindByTemplateAndHash returns the issued contract for the pair, or
	// gorm.ErrRecordNotFound. Void rows are not considered.
	FindByTemplateAndHash(ctx context.Context, db *gorm.DB, templateID, contentHash string) (*domain.Contract, error)

	// GetContract fetches a contract by id.
	GetContract(ctx context.Context, db *gorm.DB, id string) (*domain.Contract, error)

	// SetVoid transitions an issued contract to void.
	SetVoid(ctx context.Context, db *gorm.DB, id string) error

	// CountContracts / ListContractsPage back paginated listing.
	CountContracts(ctx context.Context, db *gorm.DB, templateID, status string) (int64, error)
	ListContractsPage(ctx context.Context, db *gorm.DB, templateID, status string, offset, limit int) ([]domain.Contract, error)
}

// DocumentRenderer merges template source with payload data and stores the
// rendered PDF under the given object name.
type DocumentRenderer interface {
	Render(ctx context.Context, source []byte, object string, placeholders map[string]string, flags map[string]bool) error
}

// ContractBlobStore is the slice of the blob store issuance needs: loading
// template sources and signing read URLs for rendered PDFs.
type ContractBlobStore interface {
	Fetch(ctx context.Context, object string) ([]byte, error)
	ReadURL(ctx context.Context, object string) (string, error)
}

// duplicateChecker recognizes the repo layer's unique-conflict sentinel.
// It is injected at wiring time so this package stays decoupled from the
// concrete repo package, the same way repo functions are attached through
// shims in the router.
type duplicateChecker func(error) bool

// IssueResult is what a completed issuance returns to the transport layer.
type IssueResult struct {
	Contract         *domain.Contract
	PDFURL           string
	IdempotentReused bool
}

// IssuanceService coordinates validation, hashing, rendering, and
// persistence for contract issuance, drafts, and voiding.
type IssuanceService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Templates resolves template metadata.
	Templates TemplateRepo
	// Contracts persists and queries issued contracts.
	Contracts ContractRepo
	// Renderer produces and stores the PDF.
	Renderer DocumentRenderer
	// Blobs loads template sources and signs PDF read URLs.
	Blobs ContractBlobStore

	// IsDuplicate recognizes the repo's unique-conflict error.
	IsDuplicate duplicateChecker
	// RenderTimeout bounds the external conversion call. Zero means no
	// extra bound beyond the request context.
	RenderTimeout time.Duration
}

// Validate resolves the active template and runs the full business-rule
// pass over the payload. It returns nil when the payload is issuable,
// a *contract.RuleError carrying every violation, or ErrTemplateNotFound.
func (s *IssuanceService) Validate(ctx context.Context, templateName string, p contract.Payload) error {
	if _, err := s.activeTemplate(ctx, templateName); err != nil {
		return err
	}
	p.ApplyDefaults(time.Now())
	return contract.Validate(&p)
}

// GenerateDraft runs the issuance pipeline without persistence: it always
// renders fresh, never consults or records prior issuances, and returns an
// ephemeral Draft. The draft's hash is computed exactly like an issuance
// hash, so a draft later issued unchanged produces a contract with the
// same digest.
func (s *IssuanceService) GenerateDraft(ctx context.Context, templateName string, p contract.Payload) (*domain.Draft, error) {
	tpl, err := s.activeTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}

	p.ApplyDefaults(time.Now())
	if err := contract.Validate(&p); err != nil {
		return nil, err
	}
	np := p.Normalize()

	hash, err := contract.ContentHash(tpl.ID, tpl.Version, np)
	if err != nil {
		return nil, err
	}

	object := "drafts/" + uuid.NewString() + ".pdf"
	if err := s.render(ctx, tpl.SourceObject, object, &np); err != nil {
		return nil, err
	}

	url, err := s.Blobs.ReadURL(ctx, object)
	if err != nil {
		return nil, err
	}
	return &domain.Draft{
		Status:      domain.StatusDraft,
		ContentHash: hash,
		PDFObject:   object,
		PDFURL:      url,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Issue validates, hashes, and either reuses the existing issued contract
// for this exact input or renders and persists a new one.
//
// The lookup-then-insert race is settled by the database: when a concurrent
// issuance wins, the insert comes back as a duplicate and we re-read the
// winner's row, reporting it as an idempotent reuse. Both callers therefore
// observe the same contract.
func (s *IssuanceService) Issue(ctx context.Context, templateName string, p contract.Payload, createdBy string) (*IssueResult, error) {
	tpl, err := s.activeTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}

	p.ApplyDefaults(time.Now())
	if err := contract.Validate(&p); err != nil {
		return nil, err
	}
	np := p.Normalize()

	hash, err := contract.ContentHash(tpl.ID, tpl.Version, np)
	if err != nil {
		return nil, err
	}

	if existing, err := s.Contracts.FindByTemplateAndHash(ctx, s.DB, tpl.ID, hash); err == nil {
		return s.result(ctx, existing, true)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	object := fmt.Sprintf("contracts/%s/%s.pdf", tpl.ID, hash)
	if err := s.render(ctx, tpl.SourceObject, object, &np); err != nil {
		return nil, err
	}

	c, err := s.Contracts.InsertContract(ctx, s.DB, tpl.ID, tpl.Version, hash, object, createdBy)
	if err != nil {
		if s.IsDuplicate != nil && s.IsDuplicate(err) {
			// Lost the race: someone persisted the same content while we
			// were rendering. Serve their row.
			winner, rerr := s.Contracts.FindByTemplateAndHash(ctx, s.DB, tpl.ID, hash)
			if rerr != nil {
				return nil, rerr
			}
			return s.result(ctx, winner, true)
		}
		return nil, err
	}
	return s.result(ctx, c, false)
}

// Void irreversibly transitions an issued contract to void. The hash stays
// on the row for audit, but the contract no longer blocks re-issuance of
// identical input.
func (s *IssuanceService) Void(ctx context.Context, id string) error {
	c, err := s.Contracts.GetContract(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrContractNotFound
	}
	if err != nil {
		return err
	}
	if c.Status == domain.StatusVoid {
		return ErrAlreadyVoid
	}
	if err := s.Contracts.SetVoid(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Raced with another void; the end state is what was asked for.
			return ErrAlreadyVoid
		}
		return err
	}
	return nil
}

// Get returns a contract's metadata by id.
func (s *IssuanceService) Get(ctx context.Context, id string) (*domain.Contract, error) {
	c, err := s.Contracts.GetContract(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContractNotFound
	}
	return c, err
}

// PDFURL signs a fresh read URL for a contract's rendered document.
func (s *IssuanceService) PDFURL(ctx context.Context, c *domain.Contract) (string, error) {
	return s.Blobs.ReadURL(ctx, c.PDFObject)
}

// ListPage returns a page of contracts plus the total count, optionally
// filtered by template and status. Defaults are applied for invalid
// page/pageSize values.
func (s *IssuanceService) ListPage(ctx context.Context, templateID, status string, page, pageSize int) ([]domain.Contract, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Contracts.CountContracts(ctx, s.DB, templateID, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Contract{}, 0, nil
	}

	items, err := s.Contracts.ListContractsPage(ctx, s.DB, templateID, status, offset, pageSize)
	return items, total, err
}

// activeTemplate resolves the active template for a logical name.
func (s *IssuanceService) activeTemplate(ctx context.Context, name string) (*domain.ContractTemplate, error) {
	tpl, err := s.Templates.GetActiveTemplate(ctx, s.DB, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

// render loads the template source and drives the renderer under the
// configured timeout.
func (s *IssuanceService) render(ctx context.Context, sourceObject, object string, np *contract.Payload) error {
	source, err := s.Blobs.Fetch(ctx, sourceObject)
	if err != nil {
		return err
	}
	placeholders, err := contract.BuildPlaceholders(np)
	if err != nil {
		return err
	}

	if s.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RenderTimeout)
		defer cancel()
	}
	return s.Renderer.Render(ctx, source, object, placeholders, np.FlagValues())
}

// result assembles the transport-facing view of an issued contract.
func (s *IssuanceService) result(ctx context.Context, c *domain.Contract, reused bool) (*IssueResult, error) {
	url, err := s.Blobs.ReadURL(ctx, c.PDFObject)
	if err != nil {
		return nil, err
	}
	return &IssueResult{Contract: c, PDFURL: url, IdempotentReused: reused}, nil
}
