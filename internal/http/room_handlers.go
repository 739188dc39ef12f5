package httpx

import (
	"encoding/json"
	"net/http"

	"viewport-relay/internal/relay"
)

type RoomsAPI struct{ Engine *relay.Engine }

// Get returns the live room-state snapshot, the same shape a joiner receives
func (a *RoomsAPI) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	state, ok := a.Engine.RoomState(id)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(state)
}
