package broker

import (
	"github.com/google/uuid"

	"github.com/mistakeknot/overcast/internal/core"
)

// Show creates a fresh instance of def and appends it to the active list.
// Showing the same name twice yields two independent instances. A nil
// payload falls back to the definition's own config, and an empty layout
// to center, so direct calls behave like registered triggers.
func (b *Broker) Show(def core.OverlayDefinition, payload any) core.ActiveOverlay {
	if payload == nil {
		payload = def.Config
	}
	if def.Layout == "" {
		def.Layout = core.LayoutCenter
	}
	inst := core.ActiveOverlay{
		ID:      uuid.NewString(),
		Name:    def.Name,
		Type:    def.Type,
		Layout:  def.Layout,
		Payload: payload,
	}
	b.mu.Lock()
	b.active = append(b.active, inst)
	snap := core.PartitionByLayout(b.active)
	b.mu.Unlock()

	triggersTotal.WithLabelValues("show").Inc()
	b.log.Debug().Str("overlay", inst.Name).Str("id", inst.ID).Msg("overlay shown")
	b.broadcast(snap)
	return inst
}

// Hide removes every active instance named name. No match, or an empty
// name, is a no-op; a broadcast goes out only if something was removed.
func (b *Broker) Hide(name string) {
	if name == "" {
		return
	}
	b.mu.Lock()
	kept := b.active[:0]
	removed := 0
	for _, inst := range b.active {
		if inst.Name == name {
			removed++
			continue
		}
		kept = append(kept, inst)
	}
	b.active = kept
	snap := core.PartitionByLayout(b.active)
	b.mu.Unlock()

	if removed == 0 {
		return
	}
	triggersTotal.WithLabelValues("hide").Inc()
	b.log.Debug().Str("overlay", name).Int("removed", removed).Msg("overlay hidden")
	b.broadcast(snap)
}

// End removes at most one active instance in a single pass: for each
// instance the id is checked first, then the name. The first match wins.
// Ending by id is silent; ending by name additionally publishes
// overlay:<name>:end with the payload so external subscribers can react to
// completion. An unmatched id/name pair is a no-op.
func (b *Broker) End(id, name string, payload any) {
	var (
		endedByName bool
		matched     bool
	)
	b.mu.Lock()
	for i, inst := range b.active {
		if id != "" && inst.ID == id {
			matched = true
		} else if name != "" && inst.Name == name {
			matched = true
			endedByName = true
		}
		if matched {
			b.active = append(b.active[:i], b.active[i+1:]...)
			break
		}
	}
	snap := core.PartitionByLayout(b.active)
	b.mu.Unlock()

	if !matched {
		return
	}
	triggersTotal.WithLabelValues("end").Inc()
	b.log.Debug().Str("overlay", name).Str("id", id).Bool("by_name", endedByName).Msg("overlay ended")
	if endedByName {
		b.bus.Publish(core.TopicEnd(name), payload)
	}
	b.broadcast(snap)
}

// State returns the active instances in insertion order.
func (b *Broker) State() []core.ActiveOverlay {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.ActiveOverlay, len(b.active))
	copy(out, b.active)
	return out
}

// Snapshot projects the current state into its layout partitions.
func (b *Broker) Snapshot() core.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return core.PartitionByLayout(b.active)
}

// ClearState drops every active instance and broadcasts the empty snapshot
// so connected displays converge immediately.
func (b *Broker) ClearState() {
	b.mu.Lock()
	b.active = nil
	snap := core.PartitionByLayout(b.active)
	b.mu.Unlock()
	b.broadcast(snap)
}

func (b *Broker) broadcast(snap core.Snapshot) {
	overlaysActive.Set(float64(snap.Len()))
	snapshotsTotal.Inc()
	if b.caster != nil {
		b.caster.BroadcastSnapshot(snap)
	}
}
