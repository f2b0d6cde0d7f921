package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expohall/internal/docstore"
	"expohall/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFloorplanRouter(t *testing.T) (*Router, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	svc := service.NewFloorplanService(store, zap.NewNop())
	router := NewRouter(zap.NewNop())
	router.RegisterFloorplanRoutes(NewFloorplanHandler(svc, zap.NewNop()))
	return router, store
}

func doJSON(t *testing.T, router *Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestFloorplanRoutes_SaveAndGetDesign(t *testing.T) {
	router, _ := newFloorplanRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/admin/api/v1/floorplan/expo-2026/design",
		`{"booths":[{"id":"B01","x":0,"y":0,"w":30,"h":20},{"id":"B02","x":40,"y":0,"w":30,"h":20}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, float64(ResultSuccess), out["code"])

	rec = doJSON(t, router, http.MethodGet, "/admin/api/v1/floorplan/expo-2026/design", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out = decodeResult(t, rec)
	booths := out["result"].(map[string]any)["booths"].([]any)
	assert.Len(t, booths, 2)
}

func TestFloorplanRoutes_SaveDesignDuplicateRejected(t *testing.T) {
	router, _ := newFloorplanRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/admin/api/v1/floorplan/expo-2026/design",
		`{"booths":[{"id":"A1"},{"id":"a1"}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, float64(ResultError), out["code"])
	assert.Contains(t, out["message"], "duplicate booth id")
}

func TestFloorplanRoutes_AssignFlow(t *testing.T) {
	router, store := newFloorplanRouter(t)
	require.NoError(t, store.Set(context.Background(),
		docstore.CollectionPath("events", "expo-2026", "exhibitors"), "ex1",
		map[string]any{"name": "Acme", "booth_id": ""}, false))

	rec := doJSON(t, router, http.MethodPut, "/admin/api/v1/floorplan/expo-2026/design",
		`{"booths":[{"id":"B01","w":30,"h":20}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/admin/api/v1/floorplan/expo-2026/assign",
		`{"booth_id":"B01","exhibitor_id":"ex1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeResult(t, rec)
	assert.Equal(t, float64(0), out["result"].(map[string]any)["cleared"])

	doc, err := store.Get(context.Background(),
		docstore.CollectionPath("events", "expo-2026", "exhibitors"), "ex1")
	require.NoError(t, err)
	assert.Equal(t, "B01", doc.Fields["booth_id"])
}

func TestFloorplanRoutes_RenameConflict409(t *testing.T) {
	router, _ := newFloorplanRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/admin/api/v1/floorplan/expo-2026/design",
		`{"booths":[{"id":"A1"},{"id":"B2"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/admin/api/v1/floorplan/expo-2026/rename",
		`{"old_id":"B2","new_id":"a1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	out := decodeResult(t, rec)
	assert.Contains(t, out["message"], "already in use")
}

func TestFloorplanRoutes_BadPathsAndMethods(t *testing.T) {
	router, _ := newFloorplanRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/admin/api/v1/floorplan/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/admin/api/v1/floorplan/expo-2026/design", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
