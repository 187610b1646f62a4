package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HistoryHandler serves revision log endpoints.
type HistoryHandler struct {
	svc HistoryService
	log *logrus.Logger
}

// NewHistoryHandler creates a HistoryHandler with the given service and logger.
func NewHistoryHandler(svc HistoryService, log *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{svc: svc, log: log}
}

// ListRevisions handles GET /api/v1/documents/:id/revisions[?author=].
func (h *HistoryHandler) ListRevisions(c *gin.Context) {
	ids := pathIDs(c, "id")
	if ids == nil {
		return
	}

	revisions, err := h.svc.ListRevisions(c.Request.Context(), ids[0], c.Query("author"))
	if err != nil {
		respondServiceError(c, h.log, "history.list_revisions", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"revisions": revisions})
}

// Authors handles GET /api/v1/documents/:id/authors.
func (h *HistoryHandler) Authors(c *gin.Context) {
	ids := pathIDs(c, "id")
	if ids == nil {
		return
	}

	authors, err := h.svc.Authors(c.Request.Context(), ids[0])
	if err != nil {
		respondServiceError(c, h.log, "history.authors", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"authors": authors})
}

// GetRevision handles GET /api/v1/documents/:id/revisions/:number.
func (h *HistoryHandler) GetRevision(c *gin.Context) {
	ids := pathIDs(c, "id")
	if ids == nil {
		return
	}

	number, err := parseRevisionNumber(c.Param("number"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	rev, err := h.svc.GetRevision(c.Request.Context(), ids[0], number)
	if err != nil {
		respondServiceError(c, h.log, "history.get_revision", err)

		return
	}

	c.JSON(http.StatusOK, rev)
}

// State handles GET /api/v1/documents/:id/revisions/:number/state.
func (h *HistoryHandler) State(c *gin.Context) {
	ids := pathIDs(c, "id")
	if ids == nil {
		return
	}

	number, err := parseRevisionNumber(c.Param("number"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	state, err := h.svc.DocumentState(c.Request.Context(), ids[0], number)
	if err != nil {
		respondServiceError(c, h.log, "history.state", err)

		return
	}

	c.JSON(http.StatusOK, state)
}

// FieldHistory handles GET /api/v1/documents/:id/history/:field.
func (h *HistoryHandler) FieldHistory(c *gin.Context) {
	ids := pathIDs(c, "id", "field")
	if ids == nil {
		return
	}

	entries, err := h.svc.FieldHistory(c.Request.Context(), ids[0], ids[1])
	if err != nil {
		respondServiceError(c, h.log, "history.field", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// EmbeddedFieldHistory handles
// GET /api/v1/documents/:id/embeds/:relation/:item/history/:field.
func (h *HistoryHandler) EmbeddedFieldHistory(c *gin.Context) {
	ids := pathIDs(c, "id", "relation", "item", "field")
	if ids == nil {
		return
	}

	entries, err := h.svc.EmbeddedFieldHistory(c.Request.Context(), ids[0], ids[1], ids[2], ids[3])
	if err != nil {
		respondServiceError(c, h.log, "history.embedded_field", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}
