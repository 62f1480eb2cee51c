package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"syncboard/internal/engine"
	"syncboard/internal/model"
	"syncboard/internal/store"
)

type CardHandler struct {
	store  store.Store
	engine *engine.Engine
}

func NewCardHandler(st store.Store, eng *engine.Engine) *CardHandler {
	return &CardHandler{store: st, engine: eng}
}

type createCardRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
	// AfterID anchors the new card; omitted means head of the column.
	AfterID *int64 `json:"after_id"`
}

type moveCardRequest struct {
	ColumnID int64  `json:"column_id" binding:"required"`
	AfterID  *int64 `json:"after_id"`
}

type updateCardRequest struct {
	Title   string            `json:"title" binding:"required"`
	Content string            `json:"content"`
	Options model.CardOptions `json:"options"`
}

type completeCardRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type assignRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *CardHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	columnID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createCardRequest
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

	_, patches, err := h.engine.AddCard(c.Request.Context(), userID, columnID, req.AfterID, req.Title, req.Content)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patches)
}

func (h *CardHandler) Move(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req moveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	boardID, ok := boardIDOfCard(c, h.store, cardID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.MoveCard(c.Request.Context(), cardID, req.AfterID, req.ColumnID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *CardHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	boardID, ok := boardIDOfCard(c, h.store, cardID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.UpdateCard(c.Request.Context(), cardID, req.Title, req.Content, req.Options)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *CardHandler) SetCompleted(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req completeCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	boardID, ok := boardIDOfCard(c, h.store, cardID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.SetCardCompleted(c.Request.Context(), cardID, *req.Completed)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *CardHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	boardID, ok := boardIDOfCard(c, h.store, cardID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	patches, err := h.engine.DeleteCard(c.Request.Context(), cardID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *CardHandler) Assign(c *gin.Context) {
	h.setAssignment(c, true)
}

func (h *CardHandler) Unassign(c *gin.Context) {
	h.setAssignment(c, false)
}

func (h *CardHandler) setAssignment(c *gin.Context, assign bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	boardID, ok := boardIDOfCard(c, h.store, cardID)
	if !ok {
		return
	}
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
		return
	}

	op := h.engine.UnassignUser
	if assign {
		op = h.engine.AssignUser
	}
	patches, err := op(c.Request.Context(), cardID, req.UserID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}

func (h *CardHandler) PostMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	boardID, ok := boardIDOfCard(c, h.store, cardID)
	if !ok {
		return
	}
	// Posting to a discussion needs viewer access only.
	if !requireBoardAccess(c, h.store, boardID, userID, model.RoleViewer) {
		return
	}

	_, patches, err := h.engine.PostDiscussionMessage(c.Request.Context(), cardID, userID, req.Content)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patches)
}

func (h *CardHandler) DeleteMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	msg, err := h.store.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load message"})
		return
	}
	if msg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": engine.ErrMessageNotFound.Error()})
		return
	}
	boardID, ok := boardIDOfCard(c, h.store, msg.CardID)
	if !ok {
		return
	}
	// Authors may delete their own messages; otherwise editor access is
	// required.
	if msg.UserID != userID {
		if !requireBoardAccess(c, h.store, boardID, userID, model.RoleEditor) {
			return
		}
	} else if !requireBoardAccess(c, h.store, boardID, userID, model.RoleViewer) {
		return
	}

	patches, err := h.engine.DeleteDiscussionMessage(c.Request.Context(), messageID)
	if err != nil {
		respondMutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, patches)
}
