package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mistakeknot/overcast/internal/broker"
	"github.com/mistakeknot/overcast/internal/bus"
	"github.com/mistakeknot/overcast/internal/core"
)

func newTestAPI(t *testing.T) (*httptest.Server, *broker.Broker, *Mounts) {
	t.Helper()
	brk := broker.New(bus.New(zerolog.Nop()), zerolog.Nop())
	static := NewMounts()
	brk.WithStaticExposer(static)
	srv := httptest.NewServer(NewRouter(NewService(brk), nil, static))
	t.Cleanup(srv.Close)
	return srv, brk, static
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	buf, _ := json.Marshal(payload)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestRegisterBatchWithPartialRejection(t *testing.T) {
	srv, brk, _ := newTestAPI(t)

	resp := postJSON(t, srv.URL+"/api/overlays", []map[string]any{
		{"name": "sub", "type": "text", "layout": "left"},
		{"name": "broken", "type": "hologram"},
		{"name": "raid", "type": "video", "layout": "fullscreen"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res broker.AddResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Accepted) != 2 || len(res.Rejected) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Rejected[0].Name != "broken" {
		t.Fatalf("rejected = %+v", res.Rejected)
	}
	if n := len(brk.Definitions()); n != 2 {
		t.Fatalf("registry = %d entries, want 2", n)
	}
}

func TestRegisterSingleDefinitionObject(t *testing.T) {
	srv, brk, _ := newTestAPI(t)
	resp := postJSON(t, srv.URL+"/api/overlays", map[string]any{"name": "solo", "type": "html"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	defs := brk.Definitions()
	if len(defs) != 1 || defs[0].Name != "solo" || defs[0].Layout != core.LayoutCenter {
		t.Fatalf("definitions = %+v", defs)
	}
}

func TestListDefinitionsInInsertionOrder(t *testing.T) {
	srv, brk, _ := newTestAPI(t)
	brk.Add(nil,
		core.OverlayDefinition{Name: "first", Type: core.TypeText},
		core.OverlayDefinition{Name: "second", Type: core.TypeAudio},
	)

	resp, err := http.Get(srv.URL + "/api/overlays")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var defs []core.OverlayDefinition
	if err := json.NewDecoder(resp.Body).Decode(&defs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "first" || defs[1].Name != "second" {
		t.Fatalf("definitions = %+v", defs)
	}
}

func TestShowTriggerRoutesThroughBus(t *testing.T) {
	srv, brk, _ := newTestAPI(t)
	brk.Add(nil, core.OverlayDefinition{Name: "sub", Type: core.TypeText, Layout: core.LayoutLeft})

	resp := postJSON(t, srv.URL+"/api/overlays/sub/show", map[string]any{"text": "X subscribed!"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("show status = %d", resp.StatusCode)
	}

	state := brk.State()
	if len(state) != 1 || state[0].Name != "sub" || state[0].Layout != core.LayoutLeft {
		t.Fatalf("state = %+v", state)
	}
	var payload map[string]any
	raw, _ := json.Marshal(state[0].Payload)
	if err := json.Unmarshal(raw, &payload); err != nil || payload["text"] != "X subscribed!" {
		t.Fatalf("payload = %v", state[0].Payload)
	}
}

func TestShowUnknownOverlayIs404(t *testing.T) {
	srv, _, _ := newTestAPI(t)
	resp := postJSON(t, srv.URL+"/api/overlays/ghost/show", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHideTriggerRemovesAllInstances(t *testing.T) {
	srv, brk, _ := newTestAPI(t)
	brk.Add(nil, core.OverlayDefinition{Name: "alert", Type: core.TypeText})
	def := brk.Definitions()[0]
	brk.Show(def, nil)
	brk.Show(def, nil)

	resp := postJSON(t, srv.URL+"/api/overlays/alert/hide", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("hide status = %d", resp.StatusCode)
	}
	if n := len(brk.State()); n != 0 {
		t.Fatalf("state after hide = %d instances", n)
	}
}

func TestEndEndpoint(t *testing.T) {
	srv, brk, _ := newTestAPI(t)
	def := core.OverlayDefinition{Name: "raid", Type: core.TypeVideo, Layout: core.LayoutFullscreen}
	brk.Show(def, nil)

	t.Run("unknown id falls back to name and emits end event", func(t *testing.T) {
		var got any
		brk.Bus().Subscribe(core.TopicEnd("raid"), func(p any) { got = p })

		resp := postJSON(t, srv.URL+"/api/overlays/end", map[string]any{
			"id": "zzz", "name": "raid", "payload": map[string]any{"count": 5},
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("end status = %d", resp.StatusCode)
		}
		if n := len(brk.State()); n != 0 {
			t.Fatalf("state = %d instances", n)
		}
		raw, ok := got.(json.RawMessage)
		if !ok {
			t.Fatalf("end payload = %T", got)
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil || payload["count"] != float64(5) {
			t.Fatalf("end payload = %s", raw)
		}
	})

	t.Run("missing id and name is 400", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/overlays/end", map[string]any{})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
}

func TestStateEndpointReturnsPartitions(t *testing.T) {
	srv, brk, _ := newTestAPI(t)
	brk.Show(core.OverlayDefinition{Name: "l", Type: core.TypeText, Layout: core.LayoutLeft}, nil)
	brk.Show(core.OverlayDefinition{Name: "f", Type: core.TypeVideo, Layout: core.LayoutFullscreen}, nil)

	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	var snap core.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Left) != 1 || len(snap.Fullscreen) != 1 || snap.Len() != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestClearStateEndpoint(t *testing.T) {
	srv, brk, _ := newTestAPI(t)
	brk.Show(core.OverlayDefinition{Name: "x", Type: core.TypeText}, nil)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/state", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if n := len(brk.State()); n != 0 {
		t.Fatalf("state = %d instances", n)
	}
}

func TestStaticDirExposedUnderOverlayName(t *testing.T) {
	srv, brk, _ := newTestAPI(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "clip.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	brk.Add(nil, core.OverlayDefinition{Name: "raid", Type: core.TypeVideo, StaticDir: dir})

	resp, err := http.Get(srv.URL + "/raid/clip.txt")
	if err != nil {
		t.Fatalf("get static: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("static status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/unmounted/whatever")
	if err != nil {
		t.Fatalf("get unmounted: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("unmounted status = %d", resp2.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestAPI(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
