package broker

import "github.com/mistakeknot/overcast/internal/core"

// Rejection records one definition that failed validation during Add.
type Rejection struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

// AddResult reports the outcome of a batch registration.
type AddResult struct {
	Accepted []string    `json:"accepted"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

// Add registers definitions in input order. Each entry is processed
// independently: a rejected entry is skipped and logged, later entries still
// register. Accepted entries get show/hide handlers on the bus and, when a
// static directory is configured, a static mount under /<name>/.
//
// Name uniqueness is deliberately not enforced; a duplicate name creates a
// second entry and both show handlers fire on the shared trigger topic.
//
// A non-nil owner takes shared ownership of the installed subscriptions, so
// a disconnecting connection can tear down exactly what it registered.
func (b *Broker) Add(owner *Scope, defs ...core.OverlayDefinition) AddResult {
	var res AddResult
	for _, def := range defs {
		if err := core.ValidateType(def.Type); err != nil {
			b.log.Warn().Str("overlay", def.Name).Err(err).Msg("definition rejected")
			res.Rejected = append(res.Rejected, Rejection{Name: def.Name, Err: err.Error()})
			continue
		}
		if def.Layout == "" {
			def.Layout = core.LayoutCenter
		}
		b.register(owner, def)
		res.Accepted = append(res.Accepted, def.Name)
	}
	return res
}

func (b *Broker) register(owner *Scope, def core.OverlayDefinition) {
	entry := &registered{def: def}
	entry.show = b.bus.Subscribe(core.TopicShow(def.Name), func(payload any) {
		b.Show(def, payload)
	})
	entry.hide = b.bus.Subscribe(core.TopicHide(def.Name), func(any) {
		b.Hide(def.Name)
	})
	if owner != nil {
		owner.track(entry.show, entry.hide)
	}

	b.mu.Lock()
	b.defs = append(b.defs, entry)
	b.mu.Unlock()

	if def.StaticDir != "" && b.static != nil {
		b.static.Expose("/"+def.Name, def.StaticDir)
	}
	b.log.Info().
		Str("overlay", def.Name).
		Str("type", string(def.Type)).
		Str("layout", string(def.Layout)).
		Msg("overlay registered")
}

// Definitions returns current registrations in insertion order.
func (b *Broker) Definitions() []core.OverlayDefinition {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.OverlayDefinition, 0, len(b.defs))
	for _, entry := range b.defs {
		out = append(out, entry.def)
	}
	return out
}

// ClearDefinitions empties the registry and removes its trigger handlers.
// Active overlays are unaffected.
func (b *Broker) ClearDefinitions() {
	b.mu.Lock()
	entries := b.defs
	b.defs = nil
	b.mu.Unlock()

	for _, entry := range entries {
		b.bus.Unsubscribe(entry.show)
		b.bus.Unsubscribe(entry.hide)
	}
	if len(entries) > 0 {
		b.log.Info().Int("count", len(entries)).Msg("registry cleared")
	}
}
