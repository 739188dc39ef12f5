package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewport-relay/internal/relay"
)

type nullSender struct{}

func (nullSender) Send(relay.Envelope) {}

func newTestMux(e *relay.Engine) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /api/rooms/{id}", http.HandlerFunc((&RoomsAPI{Engine: e}).Get))
	return mux
}

func TestRoomsAPIGet(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := relay.NewEngine(logger, nil, nil, relay.Config{})

	p := relay.NewSession(nullSender{})
	engine.Join(context.Background(), p, relay.JoinRequest{RoomID: "r1", UserID: "P", Role: "publisher"})
	s := relay.NewSession(nullSender{})
	engine.Join(context.Background(), s, relay.JoinRequest{RoomID: "r1", UserID: "S", Role: "subscriber"})

	mux := newTestMux(engine)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/r1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var state relay.RoomState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "r1", state.RoomID)
	require.NotNil(t, state.Publisher)
	assert.Equal(t, "P", state.Publisher.ID)
	assert.Equal(t, 1, state.SubscriberCount)
}

func TestRoomsAPIGetAbsent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := relay.NewEngine(logger, nil, nil, relay.Config{})

	rec := httptest.NewRecorder()
	newTestMux(engine).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
