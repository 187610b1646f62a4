package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/middleware"
	"github.com/persistorai/revisor/internal/models"
)

// DocumentHandler serves document endpoints.
type DocumentHandler struct {
	svc DocumentService
	log *logrus.Logger
}

// NewDocumentHandler creates a DocumentHandler with the given service and logger.
func NewDocumentHandler(svc DocumentService, log *logrus.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, log: log}
}

// List handles GET /api/v1/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	typeFilter := c.Query("type")
	limit := parseInt(c.DefaultQuery("limit", "50"), 50)
	offset := parseOffset(c.DefaultQuery("offset", "0"))

	docs, hasMore, err := h.svc.ListDocuments(c.Request.Context(), typeFilter, limit, offset)
	if err != nil {
		respondServiceError(c, h.log, "document.list", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs, "has_more": hasMore})
}

// Get handles GET /api/v1/documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	ids := pathIDs(c, "id")
	if ids == nil {
		return
	}

	doc, err := h.svc.GetDocument(c.Request.Context(), ids[0])
	if err != nil {
		respondServiceError(c, h.log, "document.get", err)

		return
	}

	c.JSON(http.StatusOK, doc)
}

// Create handles POST /api/v1/documents.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req models.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	doc, err := h.svc.CreateDocument(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, h.log, "document.create", err)

		return
	}

	middleware.Logger(c, h.log).WithFields(logrus.Fields{
		"action":      "document.create",
		"document_id": doc.ID,
		"type":        doc.Type,
	}).Info("audit")

	c.JSON(http.StatusCreated, doc)
}

// Revise handles POST /api/v1/documents/:id/revise.
func (h *DocumentHandler) Revise(c *gin.Context) {
	ids := pathIDs(c, "id")
	if ids == nil {
		return
	}

	var req models.ReviseDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	res, err := h.svc.ReviseDocument(c.Request.Context(), ids[0], req)
	if err != nil {
		respondServiceError(c, h.log, "document.revise", err)

		return
	}

	fields := logrus.Fields{
		"action":      "document.revise",
		"document_id": ids[0],
		"committed":   res.Committed,
	}
	if res.Revision != nil {
		fields["number"] = res.Revision.Number
	}

	middleware.Logger(c, h.log).WithFields(fields).Info("audit")

	status := http.StatusOK
	if res.Revision != nil && res.Committed {
		status = http.StatusCreated
	}

	c.JSON(status, res)
}
