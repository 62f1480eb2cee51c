package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"syncboard/internal/engine"
	"syncboard/internal/model"
	"syncboard/internal/store"
	"syncboard/internal/sync"
)

type BoardHandler struct {
	store  store.Store
	engine *engine.Engine
	sync   *sync.Service
}

func NewBoardHandler(st store.Store, eng *engine.Engine, syncSvc *sync.Service) *BoardHandler {
	return &BoardHandler{store: st, engine: eng, sync: syncSvc}
}

type createBoardRequest struct {
	Title string `json:"title" binding:"required"`
	Scope string `json:"scope" binding:"omitempty,oneof=course user group template"`
}

type lockBoardRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

type shareBoardRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=viewer editor"`
}

func (h *BoardHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req createBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	_, patches, err := h.engine.CreateBoard(c.Request.Context(), userID, req.Title, req.Scope)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patches)
}

func (h *BoardHandler) Clone(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !requireBoardAccess(c, h.store, templateID, userID, model.RoleViewer) {
		return
	}

	_, patches, err := h.engine.CloneBoard(c.Request.Context(), templateID, userID, req.Title, req.Scope)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patches)
}

func (h *BoardHandler) GetAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	boards, err := h.store.BoardsByOwner(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list boards"})
		return
	}
	out := make([]gin.H, 0, len(boards))
	for _, b := range boards {
		out = append(out, gin.H{
			"id":            b.ID,
			"title":         b.Title,
			"scope":         b.Scope,
			"locked":        b.Locked,
			"last_modified": b.LastModified,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Updates is the incremental-sync endpoint: it returns every change to the
// board newer than the client's cursor, as a patch list. since=0 (or no
// since) yields a full snapshot.
func (h *BoardHandler) Updates(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	cursor := int64(0)
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since parameter"})
			return
		}
		cursor = parsed
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleViewer) {
		return
	}

	patches, err := h.sync.Sync(c.Request.Context(), boardID, cursor)
	if err != nil {
		if errors.Is(err, engine.ErrBoardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch updates"})
		return
	}
	c.JSON(http.StatusOK, patches)
}

// SetColumnsLocked toggles the board lock and cascades it to every column.
func (h *BoardHandler) SetColumnsLocked(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req lockBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.SetBoardColumnsLocked(c.Request.Context(), boardID, *req.Locked)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *BoardHandler) Share(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req shareBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	board, err := h.store.GetBoard(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load board"})
		return
	}
	if board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": engine.ErrBoardNotFound.Error()})
		return
	}
	// Only the owner may manage shares.
	if board.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the board owner can share it"})
		return
	}
	target, err := h.store.GetUser(c.Request.Context(), req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": engine.ErrUserNotFound.Error()})
		return
	}

	share := &model.BoardShare{BoardID: boardID, UserID: req.UserID, Role: req.Role}
	if err := h.store.CreateShare(c.Request.Context(), share); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to share board"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"board_id": boardID, "user_id": req.UserID, "role": req.Role})
}

func (h *BoardHandler) RemoveShare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	boardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	board, err := h.store.GetBoard(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load board"})
		return
	}
	if board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": engine.ErrBoardNotFound.Error()})
		return
	}
	if board.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the board owner can manage shares"})
		return
	}

	if err := h.store.DeleteShare(c.Request.Context(), boardID, targetID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove share"})
		return
	}
	c.Status(http.StatusNoContent)
}
