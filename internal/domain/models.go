// Package domain defines the persistence models for contract templates and
// issued contracts. These types are mapped with GORM and form the core data
// layer of the issuance backend.
package domain

import "time"

// Contract statuses. A contract is born "issued" and may only ever move to
// "void"; drafts are never persisted and exist only as values in flight.
const (
	StatusIssued = "issued"
	StatusVoid   = "void"
	StatusDraft  = "draft"
)

// ContractTemplate is one uploaded version of a lease document template.
// Rows are immutable after creation except for the Active flag: at most one
// template per logical name is active at a time, and the repository flips
// the flag transactionally on upload.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: logical template name (e.g. "arriendo-departamento"); indexed.
//   - Description: optional human description.
//   - Version: semantic version string of this upload.
//   - SourceObject: blob-store object holding the template source bytes.
//   - Active: whether this row is the one used for new issuances.
//   - CreatedBy / CreatedAt: audit trail of the administrative upload.
type ContractTemplate struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"          gorm:"type:varchar(128);not null;index:idx_template_name"`
	Description  string    `json:"description,omitempty" gorm:"type:varchar(512)"`
	Version      string    `json:"version"       gorm:"type:varchar(32);not null"`
	SourceObject string    `json:"-"             gorm:"type:varchar(255);not null"`
	Active       bool      `json:"active"        gorm:"not null;index"`
	CreatedBy    string    `json:"created_by"    gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for ContractTemplate.
func (ContractTemplate) TableName() string { return "contract_templates" }

// Contract is an issued lease contract: an immutable artifact identified by
// the content hash of its inputs. The partial unique index on
// (template_id, content_hash) over issued rows is what makes the
// lookup-then-insert issuance sequence safe under concurrency — a racing
// duplicate insert fails and the loser re-reads the winner's row. Void rows
// keep their hash and PDF reference for audit but no longer participate in
// idempotent reuse.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - TemplateID / TemplateVersion: the exact template the PDF was rendered from.
//   - Status: "issued" or "void" (enforced by DB constraint).
//   - ContentHash: canonical content digest of (template, payload).
//   - PDFObject: blob-store object holding the rendered PDF.
//   - CreatedBy / CreatedAt / UpdatedAt: audit fields; UpdatedAt only moves on void.
type Contract struct {
	ID              string    `json:"id"               gorm:"type:char(36);primaryKey"`
	TemplateID      string    `json:"template_id"      gorm:"type:char(36);not null;index;uniqueIndex:ux_contract_tpl_hash,where:status = 'issued'"`
	TemplateVersion string    `json:"template_version" gorm:"type:varchar(32);not null"`
	Status          string    `json:"status"           gorm:"type:varchar(16);not null;check:status IN ('issued','void')"`
	ContentHash     string    `json:"content_hash"     gorm:"type:char(64);not null;uniqueIndex:ux_contract_tpl_hash,where:status = 'issued'"`
	PDFObject       string    `json:"-"                gorm:"type:varchar(255);not null"`
	CreatedBy       string    `json:"created_by"       gorm:"type:varchar(64);not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for Contract.
func (Contract) TableName() string { return "contracts" }

// Draft is the ephemeral result of a preview render. It is produced by the
// same pipeline as an issuance but never persisted; its ContentHash must
// equal the hash of a later issuance of the same input, which is what
// proves the preview was faithful.
type Draft struct {
	Status      string    `json:"status"` // always StatusDraft
	ContentHash string    `json:"content_hash"`
	PDFObject   string    `json:"-"`
	PDFURL      string    `json:"pdf_url"`
	GeneratedAt time.Time `json:"generated_at"`
}
