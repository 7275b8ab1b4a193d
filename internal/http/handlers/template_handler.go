// Template administration handlers.
//
// Templates are versioned ODT/HTML sources with embedded placeholder markers.
// Uploading a new version for an existing name deactivates the previous active
// version; issuance always resolves the active version by name.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arriendofacil/go-contract-backend/internal/domain"
	"github.com/arriendofacil/go-contract-backend/internal/services"
)

// UploadTemplateRequest is the JSON payload for template uploads. Source is
// the raw template text (markers included); it is stored verbatim.
type UploadTemplateRequest struct {
	// Name is the logical template name. Case-insensitive, stored lowercase.
	Name string `json:"name" binding:"required" example:"arriendo-departamento"`
	// Description is free-form text for operators.
	Description string `json:"description" example:"Contrato estándar de arriendo habitacional"`
	// Version is a human-chosen version label. Defaults to "1.0.0".
	Version string `json:"version" example:"2.1.0"`
	// Source is the template text, with [[MARKER]] placeholders and
	// [[IF.FLAG]]...[[ENDIF.FLAG]] conditional blocks.
	Source string `json:"source" binding:"required"`
}

// ListTemplatesResponse wraps the template list.
type ListTemplatesResponse struct {
	Templates []domain.ContractTemplate `json:"templates"`
}

// UploadTemplate godoc
// @ID          uploadTemplate
// @Summary     Upload a template version
// @Description Stores a new template version and makes it the active version for its name.
// @Tags        Templates
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(admin-1)
// @Param       body       body    handlers.UploadTemplateRequest  true  "Template name, version, and source"
//
// @Success     201  {object}  domain.ContractTemplate
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Upload failed"
// @Router      /templates [post]
func (h *Handlers) UploadTemplate(c *gin.Context) {
	var req UploadTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	tpl, err := h.tplSvc.Upload(c.Request.Context(),
		req.Name, req.Description, req.Version, []byte(req.Source), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrEmptyTemplateName) || errors.Is(err, services.ErrEmptyTemplateSource) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, tpl)
}

// GetTemplate godoc
// @ID          getTemplate
// @Summary     Get a template version
// @Description Returns one template version by id.
// @Tags        Templates
// @Produce     json
//
// @Param       id  path  string  true  "Template ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.ContractTemplate
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Template not found"
// @Router      /templates/{id} [get]
func (h *Handlers) GetTemplate(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "template id must be a UUID")
		return
	}

	tpl, err := h.tplSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTemplateNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, tpl)
}

// ListTemplates godoc
// @ID          listTemplates
// @Summary     List template versions
// @Description Returns every stored template version, newest first.
// @Tags        Templates
// @Produce     json
//
// @Success     200  {object}  handlers.ListTemplatesResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /templates [get]
func (h *Handlers) ListTemplates(c *gin.Context) {
	items, err := h.tplSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListTemplatesResponse{Templates: items})
}
