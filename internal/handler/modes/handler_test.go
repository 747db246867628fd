package modes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/model/modes"
)

func TestListModes(t *testing.T) {
	r := chi.NewRouter()
	New(modes.NewMemoryStore(modes.Seed())).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/modes", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var got []modes.Option
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, chat.ModeMoodCheck, got[1].ID)
	assert.Equal(t, "Mood check-in", got[1].Label)
	assert.Equal(t, "Requesting affirmations", got[2].Label)
	assert.True(t, got[2].Structured)
}
