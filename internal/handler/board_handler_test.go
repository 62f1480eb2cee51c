package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/internal/auth"
	"syncboard/internal/engine"
	"syncboard/internal/handler"
	"syncboard/internal/middleware"
	"syncboard/internal/model"
	"syncboard/internal/patch"
	"syncboard/internal/store"
	"syncboard/internal/sync"
)

// setupAPI wires the full protected route table against the in-memory store,
// the same way the server does.
func setupAPI(t *testing.T) (*gin.Engine, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := store.NewMemory()
	eng := engine.New(st, log)
	syncSvc := sync.New(st)

	boardHandler := handler.NewBoardHandler(st, eng, syncSvc)
	columnHandler := handler.NewColumnHandler(st, eng)
	cardHandler := handler.NewCardHandler(st, eng)

	r := gin.New()
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(testSecret))
	{
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.POST("/boards/:id/clone", boardHandler.Clone)
		authorized.GET("/boards/:id/updates", boardHandler.Updates)
		authorized.POST("/boards/:id/lock", boardHandler.SetColumnsLocked)
		authorized.POST("/boards/:id/share", boardHandler.Share)
		authorized.DELETE("/boards/:id/share/:user_id", boardHandler.RemoveShare)
		authorized.POST("/boards/:id/columns", columnHandler.Create)
		authorized.POST("/columns/:id/move", columnHandler.Move)
		authorized.DELETE("/columns/:id", columnHandler.Delete)
		authorized.POST("/columns/:id/cards", cardHandler.Create)
		authorized.POST("/cards/:id/move", cardHandler.Move)
		authorized.POST("/cards/:id/messages", cardHandler.PostMessage)
	}

	return r, st
}

func seedAPIUser(t *testing.T, st *store.Memory, name string) (int64, string) {
	t.Helper()
	user := &model.User{Email: name + "@example.com", HashedPassword: "x", Name: name}
	require.NoError(t, st.CreateUser(context.Background(), user))
	token, err := auth.GenerateToken(testSecret, user.ID, 24*time.Hour)
	require.NoError(t, err)
	return user.ID, token
}

func do(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewBuffer(raw)
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodePatches(t *testing.T, resp *httptest.ResponseRecorder) []patch.Patch {
	t.Helper()
	var patches []patch.Patch
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &patches))
	return patches
}

// findID pulls the entity id out of the first patch matching name and action.
func findID(t *testing.T, patches []patch.Patch, name string, action patch.Action) int64 {
	t.Helper()
	for _, p := range patches {
		if p.Name == name && p.Action == action {
			id, ok := p.Fields["id"].(float64)
			require.True(t, ok, "id missing on %s %s patch", action, name)
			return int64(id)
		}
	}
	t.Fatalf("no %s %s patch in %v", action, name, patches)
	return 0
}

func TestBoardAPI_FullFlow(t *testing.T) {
	router, st := setupAPI(t)
	_, token := seedAPIUser(t, st, "owner")

	resp := do(router, "POST", "/boards", token, gin.H{"title": "Sprint 12"})
	require.Equal(t, http.StatusCreated, resp.Code)
	boardID := findID(t, decodePatches(t, resp), patch.KindBoard, patch.ActionCreate)

	resp = do(router, "POST", fmt.Sprintf("/boards/%d/columns", boardID), token, gin.H{"title": "todo"})
	require.Equal(t, http.StatusCreated, resp.Code)
	todoID := findID(t, decodePatches(t, resp), patch.KindColumn, patch.ActionCreate)

	resp = do(router, "POST", fmt.Sprintf("/boards/%d/columns", boardID), token, gin.H{"title": "done", "after_id": todoID})
	require.Equal(t, http.StatusCreated, resp.Code)
	doneID := findID(t, decodePatches(t, resp), patch.KindColumn, patch.ActionCreate)

	resp = do(router, "POST", fmt.Sprintf("/columns/%d/cards", todoID), token, gin.H{"title": "write tests"})
	require.Equal(t, http.StatusCreated, resp.Code)
	cardID := findID(t, decodePatches(t, resp), patch.KindCard, patch.ActionCreate)

	resp = do(router, "POST", fmt.Sprintf("/cards/%d/move", cardID), token, gin.H{"column_id": doneID})
	require.Equal(t, http.StatusOK, resp.Code)
	moved := decodePatches(t, resp)
	// Source put, target put, card put.
	require.Len(t, moved, 3)

	resp = do(router, "GET", fmt.Sprintf("/boards/%d/updates?since=0", boardID), token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	snapshot := decodePatches(t, resp)
	// Board, two columns and the card.
	assert.Len(t, snapshot, 4)

	card, err := st.GetCard(context.Background(), cardID)
	require.NoError(t, err)
	assert.Equal(t, doneID, card.ColumnID)
}

func TestBoardAPI_AccessControl(t *testing.T) {
	router, st := setupAPI(t)
	_, ownerToken := seedAPIUser(t, st, "owner")
	viewerID, viewerToken := seedAPIUser(t, st, "viewer")
	_, strangerToken := seedAPIUser(t, st, "stranger")

	resp := do(router, "POST", "/boards", ownerToken, gin.H{"title": "b"})
	require.Equal(t, http.StatusCreated, resp.Code)
	boardID := findID(t, decodePatches(t, resp), patch.KindBoard, patch.ActionCreate)

	// A stranger can neither read nor write.
	resp = do(router, "GET", fmt.Sprintf("/boards/%d/updates", boardID), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = do(router, "POST", fmt.Sprintf("/boards/%d/columns", boardID), strangerToken, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Only the owner can share.
	resp = do(router, "POST", fmt.Sprintf("/boards/%d/share", boardID), strangerToken, gin.H{"user_id": viewerID, "role": "viewer"})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = do(router, "POST", fmt.Sprintf("/boards/%d/share", boardID), ownerToken, gin.H{"user_id": viewerID, "role": "viewer"})
	require.Equal(t, http.StatusCreated, resp.Code)

	// A viewer reads updates but cannot mutate.
	resp = do(router, "GET", fmt.Sprintf("/boards/%d/updates", boardID), viewerToken, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = do(router, "POST", fmt.Sprintf("/boards/%d/columns", boardID), viewerToken, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// A viewer may still post to a card's discussion.
	resp = do(router, "POST", fmt.Sprintf("/boards/%d/columns", boardID), ownerToken, gin.H{"title": "todo"})
	require.Equal(t, http.StatusCreated, resp.Code)
	columnID := findID(t, decodePatches(t, resp), patch.KindColumn, patch.ActionCreate)
	resp = do(router, "POST", fmt.Sprintf("/columns/%d/cards", columnID), ownerToken, gin.H{"title": "a"})
	require.Equal(t, http.StatusCreated, resp.Code)
	cardID := findID(t, decodePatches(t, resp), patch.KindCard, patch.ActionCreate)
	resp = do(router, "POST", fmt.Sprintf("/cards/%d/messages", cardID), viewerToken, gin.H{"content": "hi"})
	assert.Equal(t, http.StatusCreated, resp.Code)

	// Revoking the share revokes access.
	resp = do(router, "DELETE", fmt.Sprintf("/boards/%d/share/%d", boardID, viewerID), ownerToken, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	resp = do(router, "GET", fmt.Sprintf("/boards/%d/updates", boardID), viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestBoardAPI_LockedBoardConflicts(t *testing.T) {
	router, st := setupAPI(t)
	_, token := seedAPIUser(t, st, "owner")

	resp := do(router, "POST", "/boards", token, gin.H{"title": "b"})
	require.Equal(t, http.StatusCreated, resp.Code)
	boardID := findID(t, decodePatches(t, resp), patch.KindBoard, patch.ActionCreate)

	resp = do(router, "POST", fmt.Sprintf("/boards/%d/lock", boardID), token, gin.H{"locked": true})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(router, "POST", fmt.Sprintf("/boards/%d/columns", boardID), token, gin.H{"title": "x"})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "board is locked")
}

func TestBoardAPI_CloneTemplate(t *testing.T) {
	router, st := setupAPI(t)
	_, ownerToken := seedAPIUser(t, st, "owner")
	_, otherToken := seedAPIUser(t, st, "other")

	resp := do(router, "POST", "/boards", ownerToken, gin.H{"title": "tpl", "scope": "template"})
	require.Equal(t, http.StatusCreated, resp.Code)
	templateID := findID(t, decodePatches(t, resp), patch.KindBoard, patch.ActionCreate)
	resp = do(router, "POST", fmt.Sprintf("/boards/%d/columns", templateID), ownerToken, gin.H{"title": "todo"})
	require.Equal(t, http.StatusCreated, resp.Code)

	// Cloning requires at least viewer access on the template.
	resp = do(router, "POST", fmt.Sprintf("/boards/%d/clone", templateID), otherToken, gin.H{"title": "mine"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = do(router, "POST", fmt.Sprintf("/boards/%d/clone", templateID), ownerToken, gin.H{"title": "mine"})
	require.Equal(t, http.StatusCreated, resp.Code)
	patches := decodePatches(t, resp)
	cloneID := findID(t, patches, patch.KindBoard, patch.ActionCreate)
	assert.NotEqual(t, templateID, cloneID)
	// The clone carries its own column.
	findID(t, patches, patch.KindColumn, patch.ActionCreate)
}

func TestBoardAPI_UpdatesUnknownBoard(t *testing.T) {
	router, st := setupAPI(t)
	_, token := seedAPIUser(t, st, "owner")

	resp := do(router, "GET", "/boards/999/updates", token, nil)
	// Access check runs first; a missing board reads as no access.
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
