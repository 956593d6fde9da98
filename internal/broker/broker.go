// Package broker holds the authoritative overlay state: the definition
// registry, the list of currently-active overlay instances, and the trigger
// routing that connects the two through the event bus.
package broker

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mistakeknot/overcast/internal/bus"
	"github.com/mistakeknot/overcast/internal/core"
)

// Broadcaster pushes a snapshot to every connected display surface.
type Broadcaster interface {
	BroadcastSnapshot(snap core.Snapshot)
}

// StaticExposer serves a local directory under a URL prefix.
type StaticExposer interface {
	Expose(prefix, dir string)
}

type registered struct {
	def  core.OverlayDefinition
	show *bus.Subscription
	hide *bus.Subscription
}

// Broker owns all mutable overlay state for one server instance. Every
// mutation completes under the broker lock before the resulting snapshot is
// handed to the broadcaster, which serializes state transitions without any
// cooperation from callers.
type Broker struct {
	mu     sync.Mutex
	bus    *bus.Bus
	defs   []*registered
	active []core.ActiveOverlay

	caster Broadcaster
	static StaticExposer
	log    zerolog.Logger
}

func New(eventBus *bus.Bus, log zerolog.Logger) *Broker {
	b := &Broker{bus: eventBus, log: log}
	// In-process publishers register definitions the same way transports do.
	eventBus.Subscribe(core.TopicOverlaysAdd, func(payload any) {
		defs, err := DecodeDefinitions(payload)
		if err != nil {
			log.Warn().Err(err).Msg("overlays:add payload rejected")
			return
		}
		b.Add(nil, defs...)
	})
	return b
}

// WithBroadcaster installs the snapshot fan-out target.
func (b *Broker) WithBroadcaster(c Broadcaster) *Broker {
	b.caster = c
	return b
}

// WithStaticExposer installs the collaborator that serves definition
// static directories.
func (b *Broker) WithStaticExposer(e StaticExposer) *Broker {
	b.static = e
	return b
}

// Bus returns the event bus this broker dispatches triggers through.
func (b *Broker) Bus() *bus.Bus { return b.bus }

// DecodeDefinitions accepts the payload shapes a registration can arrive in:
// a definition, a slice of definitions, or raw JSON holding either.
func DecodeDefinitions(payload any) ([]core.OverlayDefinition, error) {
	switch v := payload.(type) {
	case core.OverlayDefinition:
		return []core.OverlayDefinition{v}, nil
	case []core.OverlayDefinition:
		return v, nil
	case json.RawMessage:
		return decodeJSONDefinitions(v)
	case []byte:
		return decodeJSONDefinitions(v)
	case nil:
		return nil, fmt.Errorf("missing definition payload")
	default:
		return nil, fmt.Errorf("unsupported definition payload %T", payload)
	}
}

func decodeJSONDefinitions(data []byte) ([]core.OverlayDefinition, error) {
	var many []core.OverlayDefinition
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one core.OverlayDefinition
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}
	return []core.OverlayDefinition{one}, nil
}
