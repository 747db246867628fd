package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/moodtherapist/backend/internal/logging"
	chatlogService "github.com/moodtherapist/backend/internal/service/chatlog"
)

type fakeWriter struct{}

func (fakeWriter) Stats() chatlogService.Stats {
	return chatlogService.Stats{Submitted: 4, Succeeded: 3, Failed: 1}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func get(h *Handler, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	return resp
}

func TestHealthIncludesWriterStats(t *testing.T) {
	resp := get(New("sqlite", true, fakeWriter{}, nil, nil), "/health")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"backend":"sqlite"`)
	assert.Contains(t, resp.Body.String(), `"generation":true`)
	assert.Contains(t, resp.Body.String(), `"submitted":4`)
}

func TestHealthWithoutPersistence(t *testing.T) {
	resp := get(New("none", false, nil, nil, nil), "/health")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), "chatlog")

	resp = get(New("none", false, nil, nil, nil), "/health/db")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "disabled")
}

func TestHealthDB(t *testing.T) {
	log := logging.Component(logging.Discard(), "health")

	resp := get(New("redis", true, nil, fakePinger{}, log), "/health/db")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = get(New("redis", true, nil, fakePinger{err: errors.New("dial tcp: refused")}, log), "/health/db")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
