// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Contract
// model, including the conflict-aware insert that backs idempotent
// issuance.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arriendofacil/go-contract-backend/internal/domain"
)

// ErrDuplicate is returned by InsertContract when the partial unique index
// on (template_id, content_hash) rejects the row — meaning a concurrent
// issuance of the same input won the race. Callers should re-read the
// existing row with FindByTemplateAndHash instead of treating this as a
// failure.
var ErrDuplicate = errors.New("repo: duplicate contract for template and hash")

// InsertContract persists a freshly issued contract. The ID is a randomly
// generated UUID and CreatedAt is set to UTC. A unique-constraint violation
// is translated to ErrDuplicate; other DB errors are propagated raw.
func InsertContract(ctx context.Context, db *gorm.DB, templateID, templateVersion, contentHash, pdfObject, createdBy string) (*domain.Contract, error) {
	c := &domain.Contract{
		ID:              uuid.NewString(),
		TemplateID:      templateID,
		TemplateVersion: templateVersion,
		Status:          domain.StatusIssued,
		ContentHash:     contentHash,
		PDFObject:       pdfObject,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// FindByTemplateAndHash returns the issued (non-void) contract for the
// given template and content hash, or ErrNotFound. Void rows are excluded
// on purpose: voiding releases the hash for re-issuance.
func FindByTemplateAndHash(ctx context.Context, db *gorm.DB, templateID, contentHash string) (*domain.Contract, error) {
	var c domain.Contract
	err := db.WithContext(ctx).
		Where("template_id = ? AND content_hash = ? AND status = ?",
			templateID, contentHash, domain.StatusIssued).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContract fetches a contract by ID, or ErrNotFound if missing.
func GetContract(ctx context.Context, db *gorm.DB, id string) (*domain.Contract, error) {
	var c domain.Contract
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// SetVoid transitions an issued contract to void. The transition is
// irreversible; rows already void are left untouched and reported as
// ErrNotFound so callers can distinguish "voided now" from "was not
// voidable".
func SetVoid(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("id = ? AND status = ?", id, domain.StatusIssued).
		Update("status", domain.StatusVoid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ContractFilter narrows CountContracts and ListContractsPage. Zero values
// mean "no constraint".
type ContractFilter struct {
	TemplateID string
	Status     string
}

// CountContracts returns the number of contracts matching the filter.
func CountContracts(ctx context.Context, db *gorm.DB, f ContractFilter) (int64, error) {
	var total int64
	err := applyFilter(db.WithContext(ctx).Model(&domain.Contract{}), f).
		Count(&total).Error
	return total, err
}

// ListContractsPage returns a paginated slice of contracts matching the
// filter, ordered by creation time descending. The caller computes offset
// and limit (e.g. (page-1)*pageSize).
func ListContractsPage(ctx context.Context, db *gorm.DB, f ContractFilter, offset, limit int) ([]domain.Contract, error) {
	var out []domain.Contract
	err := applyFilter(db.WithContext(ctx), f).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

func applyFilter(q *gorm.DB, f ContractFilter) *gorm.DB {
	if f.TemplateID != "" {
		q = q.Where("template_id = ?", f.TemplateID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// isUniqueViolation detects unique-constraint errors across the drivers we
// run on (the pure-Go sqlite driver reports them as plain strings).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "unique")
}
