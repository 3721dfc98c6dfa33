package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/prompt-warden/internal/core"
	"github.com/sevigo/prompt-warden/internal/service"
	"github.com/sevigo/prompt-warden/internal/storage"
)

func newPromptRouter(t *testing.T) (*chi.Mux, storage.Store) {
	t.Helper()

	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewPromptHandler(service.NewPrompts(store, logger), logger)

	r := chi.NewRouter()
	r.Post("/prompts", h.Create)
	r.Get("/prompts/{promptID}", h.Get)
	r.Post("/prompts/{promptID}", h.Update)
	r.Delete("/prompts/{promptID}", h.Delete)
	r.Get("/prompts/{promptID}/versions", h.ListVersions)
	r.Get("/versions/{versionID}", h.GetVersion)
	return r, store
}

func doJSON(t *testing.T, router http.Handler, method, path, account string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if account != "" {
		req.Header.Set("X-Account-ID", account)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPromptCreateAndGet(t *testing.T) {
	router, _ := newPromptRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/prompts", "alice", map[string]any{
		"title":   "greeting",
		"content": "Hello {{ name }}!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created core.Prompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "greeting", created.Title)

	rec = doJSON(t, router, http.MethodGet, "/prompts/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/prompts/"+created.ID+"/versions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Versions []core.PromptVersion `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Versions, 1)
	assert.Equal(t, 1, listed.Versions[0].VersionNumber)
	assert.Equal(t, "Initial version", listed.Versions[0].CommitMessage)
	assert.Equal(t, core.TextContent("Hello {{ name }}!"), listed.Versions[0].Content)
}

func TestPromptCreateChatContent(t *testing.T) {
	router, _ := newPromptRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/prompts", "alice", map[string]any{
		"title": "chat",
		"content": []map[string]string{
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "{{ question }}"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created core.Prompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodGet, "/prompts/"+created.ID+"/versions", "", nil)
	var listed struct {
		Versions []core.PromptVersion `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Versions, 1)
	assert.True(t, listed.Versions[0].Content.IsChat())
}

func TestPromptCreateRequiresCaller(t *testing.T) {
	router, _ := newPromptRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/prompts", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPromptCreateValidation(t *testing.T) {
	router, _ := newPromptRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/prompts", "alice", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromptUpdateAppendsVersion(t *testing.T) {
	router, _ := newPromptRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/prompts", "alice", map[string]any{
		"title":   "greeting",
		"content": "v1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created core.Prompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodPost, "/prompts/"+created.ID, "bob", map[string]any{
		"content":       "v2",
		"commitMessage": "rework",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/prompts/"+created.ID+"/versions", "", nil)
	var listed struct {
		Versions []core.PromptVersion `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Versions, 2)
	assert.Equal(t, 2, listed.Versions[0].VersionNumber)
	assert.Equal(t, "rework", listed.Versions[0].CommitMessage)
	assert.Equal(t, "bob", listed.Versions[0].AuthorID)
}

func TestPromptDelete(t *testing.T) {
	router, _ := newPromptRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/prompts", "alice", map[string]any{"title": "doomed"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created core.Prompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodDelete, "/prompts/"+created.ID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/prompts/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPromptGetUnknown(t *testing.T) {
	router, _ := newPromptRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/prompts/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/versions/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPromptCreateRejectsMalformedBody(t *testing.T) {
	router, _ := newPromptRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/prompts", bytes.NewReader([]byte("{not json")))
	req.Header.Set("X-Account-ID", "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
