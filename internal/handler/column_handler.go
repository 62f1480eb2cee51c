package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"syncboard/internal/engine"
	"syncboard/internal/model"
	"syncboard/internal/store"
)

type ColumnHandler struct {
	store  store.Store
	engine *engine.Engine
}

func NewColumnHandler(st store.Store, eng *engine.Engine) *ColumnHandler {
	return &ColumnHandler{store: st, engine: eng}
}

type createColumnRequest struct {
	Title string `json:"title" binding:"required"`
	// AfterID anchors the new column; omitted means head of the board.
	AfterID *int64              `json:"after_id"`
	Options model.ColumnOptions `json:"options"`
}

type moveColumnRequest struct {
	AfterID *int64 `json:"after_id"`
}

type updateColumnRequest struct {
	Title   string              `json:"title" binding:"required"`
	Options model.ColumnOptions `json:"options"`
}

type lockColumnRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

func (h *ColumnHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	_, patches, err := h.engine.AddColumn(c.Request.Context(), boardID, req.AfterID, req.Title, req.Options)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patches)
}

func (h *ColumnHandler) Move(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	columnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req moveColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	boardID, ok := boardIDOfColumn(c, h.store, columnID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.MoveColumn(c.Request.Context(), columnID, req.AfterID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *ColumnHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	columnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	boardID, ok := boardIDOfColumn(c, h.store, columnID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.UpdateColumn(c.Request.Context(), columnID, req.Title, req.Options)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *ColumnHandler) SetLocked(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	columnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req lockColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	boardID, ok := boardIDOfColumn(c, h.store, columnID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.SetColumnLocked(c.Request.Context(), columnID, *req.Locked)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *ColumnHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	columnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	boardID, ok := boardIDOfColumn(c, h.store, columnID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.DeleteColumn(c.Request.Context(), columnID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}
