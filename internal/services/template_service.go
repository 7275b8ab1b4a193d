// Package services – TemplateService
//
// This file implements the TemplateService, which manages the lifecycle of
// contract templates. Templates are immutable after upload; a new upload of
// an existing logical name becomes the active version and deactivates its
// predecessor inside the repository transaction. The rendering pipeline
// never mutates templates.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arriendofacil/go-contract-backend/internal/domain"
)

// TemplateRepo defines the repository contract required by TemplateService
// and IssuanceService.
type TemplateRepo interface {
	// CreateTemplate inserts a new active template version, deactivating
	// the previous one transactionally.
	CreateTemplate(ctx context.Context, db *gorm.DB, name, description, version, sourceObject, createdBy string) (*domain.ContractTemplate, error)

	// GetActiveTemplate fetches the active version for a logical name.
	GetActiveTemplate(ctx context.Context, db *gorm.DB, name string) (*domain.ContractTemplate, error)

	// GetTemplate fetches a template version by id.
	GetTemplate(ctx context.Context, db *gorm.DB, id string) (*domain.ContractTemplate, error)

	// ListTemplates returns all template versions, newest first.
	ListTemplates(ctx context.Context, db *gorm.DB) ([]domain.ContractTemplate, error)
}

// TemplateBlobStore is the slice of the blob store the template service
// needs: uploading source documents.
type TemplateBlobStore interface {
	Store(ctx context.Context, object string, data []byte, contentType string) error
}

// TemplateService provides template upload and lookup operations.
type TemplateService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the template repository used by this service.
	Repo TemplateRepo
	// Blobs stores uploaded source documents.
	Blobs TemplateBlobStore
}

// Upload stores the source bytes in the blob store and records the new
// template version as active. The logical name is trimmed and lowercased
// so "Arriendo" and "arriendo" are one template.
func (s *TemplateService) Upload(ctx context.Context, name, description, version string, source []byte, createdBy string) (*domain.ContractTemplate, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrEmptyTemplateName
	}
	if len(source) == 0 {
		return nil, ErrEmptyTemplateSource
	}
	if strings.TrimSpace(version) == "" {
		version = "1.0.0"
	}

	object := fmt.Sprintf("templates/%s/%s", name, uuid.NewString())
	if err := s.Blobs.Store(ctx, object, source, "text/html; charset=utf-8"); err != nil {
		return nil, err
	}
	return s.Repo.CreateTemplate(ctx, s.DB, name, strings.TrimSpace(description), version, object, createdBy)
}

// Get returns a template version by id.
func (s *TemplateService) Get(ctx context.Context, id string) (*domain.ContractTemplate, error) {
	t, err := s.Repo.GetTemplate(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

// List returns every stored template version, newest first.
func (s *TemplateService) List(ctx context.Context) ([]domain.ContractTemplate, error) {
	return s.Repo.ListTemplates(ctx, s.DB)
}
