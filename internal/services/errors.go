// Package services defines the business logic for contract templates and
// issuance. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer. Rule violations are not represented here — they
// travel as *contract.RuleError so the full violation list survives to the
// boundary.
package services

import "errors"

var (
	// ErrTemplateNotFound indicates that no template exists for the
	// requested name or id, or that no version of the name is active.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrContractNotFound indicates that the requested contract does not
	// exist.
	ErrContractNotFound = errors.New("contract not found")

	// ErrAlreadyVoid is returned when a void action targets a contract
	// that has already been voided. The transition is irreversible, so
	// there is nothing left to do.
	ErrAlreadyVoid = errors.New("contract is already void")

	// ErrEmptyTemplateName is returned when a template upload carries no
	// logical name.
	ErrEmptyTemplateName = errors.New("template name is empty")

	// ErrEmptyTemplateSource is returned when a template upload carries no
	// source document.
	ErrEmptyTemplateSource = errors.New("template source is empty")
)
