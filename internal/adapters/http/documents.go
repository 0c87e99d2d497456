package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pages/internal/domain"
	"github.com/dkeye/Pages/internal/store"
)

func currentUser(c *gin.Context) *domain.User {
	return c.MustGet("user").(*domain.User)
}

func (api *API) handleListDocuments(c *gin.Context) {
	user := currentUser(c)
	docs, err := api.Store.DocumentsForUser(c.Request.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list documents")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (api *API) handleCreateDocument(c *gin.Context) {
	user := currentUser(c)
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	if req.Title == "" {
		req.Title = "Untitled Document"
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:            domain.DocumentID(uuid.NewString()),
		Title:         req.Title,
		Content:       req.Content,
		OwnerID:       user.ID,
		Collaborators: []domain.UserID{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := api.Store.CreateDocument(c.Request.Context(), doc); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (api *API) handleGetDocument(c *gin.Context) {
	id := domain.DocumentID(c.Param("id"))
	doc, err := api.Store.DocumentByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// handleUpdateDocument saves unconditionally: last write wins, no merge.
func (api *API) handleUpdateDocument(c *gin.Context) {
	id := domain.DocumentID(c.Param("id"))
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}

	err := api.Store.UpdateDocument(c.Request.Context(), id, req.Title, req.Content)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *API) handleAddCollaborator(c *gin.Context) {
	id := domain.DocumentID(c.Param("id"))
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.BindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}

	if _, err := api.Store.DocumentByID(c.Request.Context(), id); errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err := api.Store.AddCollaborator(c.Request.Context(), id, domain.UserID(req.UserID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *API) handleDocumentPresence(c *gin.Context) {
	id := domain.DocumentID(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"documentId": id,
		"users":      api.Presence.Roster(id),
		"count":      api.Presence.MemberCount(id),
	})
}

func (api *API) handlePresenceOverview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"documents": api.Presence.ActiveDocuments()})
}
