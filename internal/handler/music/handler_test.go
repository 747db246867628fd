package music

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/moodtherapist/backend/internal/logging"
	"github.com/moodtherapist/backend/internal/model/chat"
)

type fakeSpotify struct {
	enabled bool
	mood    string
	err     error
}

func (f *fakeSpotify) Enabled() bool { return f.enabled }

func (f *fakeSpotify) Recommend(_ context.Context, mood string) ([]chat.Track, error) {
	f.mood = mood
	if f.err != nil {
		return nil, f.err
	}
	return []chat.Track{{Name: "Weightless", Artist: "Marconi Union"}}, nil
}

func do(spotify Recommender, method, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(spotify, logging.Component(logging.Discard(), "music")).RegisterRoutes(r)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(method, "/spotify", bytes.NewBufferString(body)))
	return resp
}

func TestRecommend(t *testing.T) {
	spotify := &fakeSpotify{enabled: true}
	resp := do(spotify, http.MethodPost, `{"mood":"anxious"}`)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "anxious", spotify.mood)
	assert.Contains(t, resp.Body.String(), `"success":true`)
	assert.Contains(t, resp.Body.String(), `"artist":"Marconi Union"`)
}

func TestRecommendErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, do(&fakeSpotify{enabled: true}, http.MethodPost, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(&fakeSpotify{enabled: true}, http.MethodPost, `{`).Code)
	assert.Equal(t, http.StatusInternalServerError, do(&fakeSpotify{}, http.MethodPost, `{"mood":"happy"}`).Code)
	assert.Equal(t, http.StatusInternalServerError, do(&fakeSpotify{enabled: true, err: errors.New("boom")}, http.MethodPost, `{"mood":"happy"}`).Code)
}

func TestUsage(t *testing.T) {
	resp := do(nil, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "use POST with mood parameter")
}
