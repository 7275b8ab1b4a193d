// Contract HTTP handlers.
//
// This file exposes REST endpoints for the issuance pipeline:
//   - POST /contracts/validate   (business-rule check, no side effects)
//   - POST /contracts/draft      (preview render, nothing persisted)
//   - POST /contracts            (idempotent issuance)
//   - POST /contracts/{id}/void  (irreversible administrative void)
//   - GET  /contracts/{id}       (metadata + fresh PDF URL)
//   - GET  /contracts            (list, paginated, filterable)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Pipeline errors keep their
// structure all the way here so clients receive the complete violation list
// in one round trip.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arriendofacil/go-contract-backend/internal/contract"
	"github.com/arriendofacil/go-contract-backend/internal/domain"
	"github.com/arriendofacil/go-contract-backend/internal/http/middleware"
	"github.com/arriendofacil/go-contract-backend/internal/render"
	"github.com/arriendofacil/go-contract-backend/internal/services"
	"github.com/arriendofacil/go-contract-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// IssuanceService defines the issuance pipeline operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type IssuanceService interface {
	// Validate runs the business-rule pass without side effects.
	Validate(ctx context.Context, templateName string, p contract.Payload) error
	// GenerateDraft renders a preview without persisting anything.
	GenerateDraft(ctx context.Context, templateName string, p contract.Payload) (*domain.Draft, error)
	// Issue validates, hashes, and issues (or idempotently reuses) a contract.
	Issue(ctx context.Context, templateName string, p contract.Payload, createdBy string) (*services.IssueResult, error)
	// Void irreversibly voids an issued contract.
	Void(ctx context.Context, id string) error
	// Get returns contract metadata by id.
	Get(ctx context.Context, id string) (*domain.Contract, error)
	// PDFURL signs a fresh read URL for the contract's document.
	PDFURL(ctx context.Context, c *domain.Contract) (string, error)
	// ListPage returns a page of contracts and the total count.
	ListPage(ctx context.Context, templateID, status string, page, pageSize int) ([]domain.Contract, int64, error)
}

// TemplateService defines template administration operations consumed by
// HTTP handlers.
type TemplateService interface {
	// Upload stores a new template version and makes it active.
	Upload(ctx context.Context, name, description, version string, source []byte, createdBy string) (*domain.ContractTemplate, error)
	// Get returns one template version by id.
	Get(ctx context.Context, id string) (*domain.ContractTemplate, error)
	// List returns all template versions, newest first.
	List(ctx context.Context) ([]domain.ContractTemplate, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for contracts and templates. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	issueSvc IssuanceService
	tplSvc   TemplateService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(issueSvc IssuanceService, tplSvc TemplateService) *Handlers {
	return &Handlers{issueSvc: issueSvc, tplSvc: tplSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// IssuanceRequest is the JSON payload for validate, draft, and issue calls.
type IssuanceRequest struct {
	// Template is the logical template name whose active version is used.
	Template string `json:"template" binding:"required" example:"arriendo-departamento"`
	// Payload is the structured contract data.
	Payload contract.Payload `json:"payload" binding:"required"`
}

// ValidateResponse reports the outcome of a validation-only call.
type ValidateResponse struct {
	Valid  bool                 `json:"valid"`
	Errors []contract.Violation `json:"errors,omitempty"`
}

// IssueResponse describes an issued (or idempotently reused) contract.
type IssueResponse struct {
	ContractID       string `json:"contract_id"`
	Status           string `json:"status"`
	ContentHash      string `json:"content_hash"`
	PDFURL           string `json:"pdf_url"`
	IdempotentReused bool   `json:"idempotent_reused"`
}

// ContractResponse wraps contract metadata with a fresh document URL.
type ContractResponse struct {
	domain.Contract
	PDFURL string `json:"pdf_url,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListContractsResponse wraps a page of contracts and pagination information.
type ListContractsResponse struct {
	Contracts  []domain.Contract `json:"contracts"`
	Pagination Pagination        `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failPipeline maps issuance pipeline errors onto HTTP responses. Template
// authoring defects deliberately reach clients as an opaque 500: the broken
// template is an operator problem, and the details land in the error log
// instead.
func failPipeline(c *gin.Context, err error) {
	var ruleErr *contract.RuleError
	switch {
	case errors.As(err, &ruleErr):
		failWithDetails(c, http.StatusUnprocessableEntity, ErrCodeBusinessRule,
			"payload violates business rules", ruleErr.Violations)
	case errors.Is(err, contract.ErrFormat):
		fail(c, http.StatusUnprocessableEntity, ErrCodeBusinessRule, err.Error())
	case errors.Is(err, services.ErrTemplateNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
	case errors.Is(err, render.ErrUnbalancedConditional),
		errors.Is(err, render.ErrUnterminatedConditional):
		middleware.LoggerFrom(c).Error().Err(err).Msg("template authoring defect")
		fail(c, http.StatusInternalServerError, ErrCodeTemplateDefect,
			"template configuration defect; operators have been notified")
	case errors.Is(err, render.ErrRenderFailed):
		fail(c, http.StatusBadGateway, ErrCodeRenderFailed,
			"document rendering failed; the request can be retried safely")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// ValidateContract godoc
// @ID          validateContract
// @Summary     Validate a contract payload
// @Description Runs the full business-rule pass and returns every violation. No side effects.
// @Tags        Contracts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.IssuanceRequest  true  "Template name and payload"
//
// @Success     200  {object}  handlers.ValidateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Template not found"
// @Router      /contracts/validate [post]
func (h *Handlers) ValidateContract(c *gin.Context) {
	var req IssuanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	err := h.issueSvc.Validate(c.Request.Context(), req.Template, req.Payload)
	var ruleErr *contract.RuleError
	switch {
	case err == nil:
		ok(c, http.StatusOK, ValidateResponse{Valid: true})
	case errors.As(err, &ruleErr):
		ok(c, http.StatusOK, ValidateResponse{Valid: false, Errors: ruleErr.Violations})
	default:
		failPipeline(c, err)
	}
}

// GenerateDraft godoc
// @ID          generateDraft
// @Summary     Render a draft contract
// @Description Runs the full pipeline without persistence and returns a preview PDF URL. Always renders fresh.
// @Tags        Contracts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.IssuanceRequest  true  "Template name and payload"
//
// @Success     200  {object}  domain.Draft
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Template not found"
// @Failure     422  {object}  handlers.ErrorResponse  "Business rule violations"
// @Failure     502  {object}  handlers.ErrorResponse  "Rendering failed"
// @Router      /contracts/draft [post]
func (h *Handlers) GenerateDraft(c *gin.Context) {
	var req IssuanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	draft, err := h.issueSvc.GenerateDraft(c.Request.Context(), req.Template, req.Payload)
	if err != nil {
		failPipeline(c, err)
		return
	}
	ok(c, http.StatusOK, draft)
}

// IssueContract godoc
// @ID          issueContract
// @Summary     Issue a contract
// @Description Issues a contract for the payload, or returns the previously issued artifact when the same input was already issued (idempotent reuse).
// @Tags        Contracts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(admin-1)
// @Param       body       body    handlers.IssuanceRequest  true  "Template name and payload"
//
// @Success     200  {object}  handlers.IssueResponse "Idempotent reuse of an existing contract"
// @Success     201  {object}  handlers.IssueResponse "Newly issued contract"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Template not found"
// @Failure     422  {object}  handlers.ErrorResponse "Business rule violations"
// @Failure     502  {object}  handlers.ErrorResponse "Rendering failed"
// @Router      /contracts [post]
func (h *Handlers) IssueContract(c *gin.Context) {
	var req IssuanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.issueSvc.Issue(c.Request.Context(), req.Template, req.Payload, userID(c))
	if err != nil {
		failPipeline(c, err)
		return
	}

	status := http.StatusCreated
	if res.IdempotentReused {
		status = http.StatusOK
	}
	ok(c, status, IssueResponse{
		ContractID:       res.Contract.ID,
		Status:           res.Contract.Status,
		ContentHash:      res.Contract.ContentHash,
		PDFURL:           res.PDFURL,
		IdempotentReused: res.IdempotentReused,
	})
}

// VoidContract godoc
// @ID          voidContract
// @Summary     Void a contract
// @Description Irreversibly voids an issued contract. The record is kept for audit but excluded from idempotent reuse.
// @Tags        Contracts
// @Produce     json
//
// @Param       id  path  string  true  "Contract ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Contract not found"
// @Failure     409  {object} handlers.ErrorResponse "Already void"
// @Router      /contracts/{id}/void [post]
func (h *Handlers) VoidContract(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contract id must be a UUID")
		return
	}

	switch err := h.issueSvc.Void(c.Request.Context(), id); {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrContractNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "contract not found")
	case errors.Is(err, services.ErrAlreadyVoid):
		fail(c, http.StatusConflict, ErrCodeConflict, "contract is already void")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// GetContract godoc
// @ID          getContract
// @Summary     Get contract metadata
// @Description Returns contract metadata and a fresh presigned PDF URL.
// @Tags        Contracts
// @Produce     json
//
// @Param       id  path  string  true  "Contract ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ContractResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Contract not found"
// @Router      /contracts/{id} [get]
func (h *Handlers) GetContract(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "contract id must be a UUID")
		return
	}

	ct, err := h.issueSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrContractNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "contract not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	// Best effort: metadata is still useful when the store is unreachable.
	url, err := h.issueSvc.PDFURL(c.Request.Context(), ct)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("contract_id", id).Msg("presign failed")
	}
	ok(c, http.StatusOK, ContractResponse{Contract: *ct, PDFURL: url})
}

// ListContracts godoc
// @ID          listContracts
// @Summary     List contracts (paginated)
// @Description Returns a page of contracts, optionally filtered by template and status.
// @Tags        Contracts
// @Produce     json
//
// @Param       template_id  query  string  false "Filter by template id"
// @Param       status       query  string  false "Filter by status"  Enums(issued, void)
// @Param       page         query  int     false "Page number"       minimum(1) default(1)
// @Param       page_size    query  int     false "Items per page"    minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListContractsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contracts [get]
func (h *Handlers) ListContracts(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.issueSvc.ListPage(c.Request.Context(),
		c.Query("template_id"), c.Query("status"), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListContractsResponse{
		Contracts: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
