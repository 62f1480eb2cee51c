package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"syncboard/internal/engine"
	"syncboard/internal/middleware"
	"syncboard/internal/store"
)

// currentUserID pulls the authenticated user id placed by the JWT
// middleware; it writes the error response itself on failure.
func currentUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return 0, false
	}
	userID, ok := v.(int64)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return 0, false
	}
	return userID, true
}

// pathID parses a numeric path parameter; it writes the error response
// itself on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " format"})
		return 0, false
	}
	return id, true
}

// checkBoardAccess reports whether userID may act on boardID with the given
// role. The board owner always may; otherwise a matching share is required.
func checkBoardAccess(c *gin.Context, st store.Store, boardID, userID int64, role string) (bool, error) {
	board, err := st.GetBoard(c.Request.Context(), boardID)
	if err != nil {
		return false, err
	}
	if board == nil {
		return false, nil
	}
	if board.OwnerID == userID {
		return true, nil
	}
	return st.HasBoardRole(c.Request.Context(), boardID, userID, role)
}

// requireBoardAccess wraps checkBoardAccess and writes the error response
// itself when access is missing.
func requireBoardAccess(c *gin.Context, st store.Store, boardID, userID int64, role string) bool {
	hasAccess, err := checkBoardAccess(c, st, boardID, userID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check board access"})
		return false
	}
	if !hasAccess {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to access this board"})
		return false
	}
	return true
}

// respondMutationError maps engine failures to HTTP statuses. Validation
// failures surface as an explicit "operation did not apply"; nothing is
// retried server-side.
func respondMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrBoardNotFound),
		errors.Is(err, engine.ErrColumnNotFound),
		errors.Is(err, engine.ErrCardNotFound),
		errors.Is(err, engine.ErrMessageNotFound),
		errors.Is(err, engine.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrBoardLocked),
		errors.Is(err, engine.ErrColumnLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
	}
}

// boardIDOfColumn resolves the owning board of a column for access checks.
func boardIDOfColumn(c *gin.Context, st store.Store, columnID int64) (int64, bool) {
	column, err := st.GetColumn(c.Request.Context(), columnID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load column"})
		return 0, false
	}
	if column == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": engine.ErrColumnNotFound.Error()})
		return 0, false
	}
	return column.BoardID, true
}

// boardIDOfCard resolves the owning board of a card for access checks.
func boardIDOfCard(c *gin.Context, st store.Store, cardID int64) (int64, bool) {
	card, err := st.GetCard(c.Request.Context(), cardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load card"})
		return 0, false
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": engine.ErrCardNotFound.Error()})
		return 0, false
	}
	return card.BoardID, true
}
