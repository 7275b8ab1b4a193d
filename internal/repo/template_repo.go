// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ContractTemplate model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a template is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arriendofacil/go-contract-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateTemplate inserts a new template version and makes it the single
// active row for its logical name, deactivating any previous active version
// in the same transaction. The template ID is a randomly generated UUID.
func CreateTemplate(ctx context.Context, db *gorm.DB, name, description, version, sourceObject, createdBy string) (*domain.ContractTemplate, error) {
	t := &domain.ContractTemplate{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		Version:      version,
		SourceObject: sourceObject,
		Active:       true,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now().UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ContractTemplate{}).
			Where("name = ? AND active = ?", name, true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetActiveTemplate fetches the active template for a logical name, or
// ErrNotFound when no version of that name is active.
func GetActiveTemplate(ctx context.Context, db *gorm.DB, name string) (*domain.ContractTemplate, error) {
	var t domain.ContractTemplate
	err := db.WithContext(ctx).
		Where("name = ? AND active = ?", name, true).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTemplate fetches a template by ID, or ErrNotFound if missing.
func GetTemplate(ctx context.Context, db *gorm.DB, id string) (*domain.ContractTemplate, error) {
	var t domain.ContractTemplate
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates returns all template versions ordered by creation time
// descending (most recent first).
func ListTemplates(ctx context.Context, db *gorm.DB) ([]domain.ContractTemplate, error) {
	var out []domain.ContractTemplate
	err := db.WithContext(ctx).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
