package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the trigger API, the display websocket and the static
// mount table onto one handler. Static mounts claim the root, so every API
// route lives under a reserved prefix.
func NewRouter(svc *Service, wsHandler http.Handler, static http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/overlays", instrument("/api/overlays", svc.handleOverlays))
	mux.Handle("/api/overlays/end", instrument("/api/overlays/end", svc.handleEndOverlay))
	mux.Handle("/api/overlays/", instrument("/api/overlays/{name}/{action}", svc.handleOverlayTrigger))
	mux.Handle("/api/state", instrument("/api/state", svc.handleState))
	mux.Handle("/healthz", instrument("/healthz", handleHealthz))
	mux.Handle("/metrics", promhttp.Handler())

	if wsHandler != nil {
		mux.Handle("/ws/display", wsHandler)
	}
	if static != nil {
		mux.Handle("/", static)
	}

	return mux
}
