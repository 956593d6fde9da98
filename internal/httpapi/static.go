package httpapi

import (
	"net/http"
	"strings"
	"sync"
)

// Mounts serves overlay static directories under /<name>/. Mounts are
// installed while the server is running, so the table is its own handler
// instead of patterns on the mux; exposing an already-mounted prefix
// replaces it.
type Mounts struct {
	mu   sync.RWMutex
	dirs map[string]http.Handler
}

func NewMounts() *Mounts {
	return &Mounts{dirs: make(map[string]http.Handler)}
}

// Expose serves dir under prefix. Implements broker.StaticExposer.
func (m *Mounts) Expose(prefix, dir string) {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return
	}
	m.mu.Lock()
	m.dirs[prefix] = http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	m.mu.Unlock()
}

func (m *Mounts) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/")
	name, _, _ := strings.Cut(rest, "/")
	m.mu.RLock()
	h, ok := m.dirs["/"+name]
	m.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.ServeHTTP(w, r)
}
