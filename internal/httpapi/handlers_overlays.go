package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/mistakeknot/overcast/internal/broker"
	"github.com/mistakeknot/overcast/internal/core"
)

type endRequest struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *Service) handleOverlays(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defs, err := broker.DecodeDefinitions(json.RawMessage(body))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		res := s.brk.Add(nil, defs...)
		writeJSON(w, res)
	case http.MethodGet:
		writeJSON(w, s.brk.Definitions())
	case http.MethodDelete:
		s.brk.ClearDefinitions()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleOverlayTrigger serves /api/overlays/{name}/show and .../hide. The
// trigger goes through the bus, so an HTTP show and a websocket
// overlay:<name>:show event run the identical handler chain.
func (s *Service) handleOverlayTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/overlays/")
	name, action, ok := strings.Cut(strings.Trim(path, "/"), "/")
	if !ok || name == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var topic string
	switch action {
	case "show":
		topic = core.TopicShow(name)
	case "hide":
		topic = core.TopicHide(name)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if s.brk.Bus().SubscriberCount(topic) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var payload any
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		payload = json.RawMessage(body)
	}
	s.brk.Bus().Publish(topic, payload)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) handleEndOverlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req endRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.ID == "" && req.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var payload any
	if len(req.Payload) > 0 {
		payload = req.Payload
	}
	s.brk.End(req.ID, req.Name, payload)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.brk.Snapshot())
	case http.MethodDelete:
		s.brk.ClearState()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
