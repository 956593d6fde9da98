package core

import "fmt"

// OverlayType selects which renderer configuration shape a definition carries.
// The broker never interprets the config itself.
type OverlayType string

const (
	TypeText  OverlayType = "text"
	TypeVideo OverlayType = "video"
	TypeHTML  OverlayType = "html"
	TypeAudio OverlayType = "audio"
)

// Layout is the screen region an overlay is assigned to. It determines which
// partition of the broadcast snapshot the overlay lands in.
type Layout string

const (
	LayoutFullscreen Layout = "fullscreen"
	LayoutCenter     Layout = "center"
	LayoutRight      Layout = "right"
	LayoutLeft       Layout = "left"
)

// ErrUnsupportedType rejects a definition whose type is outside the known set.
var ErrUnsupportedType = fmt.Errorf("unsupported overlay type")

// ValidateType reports whether t names a known overlay type.
func ValidateType(t OverlayType) error {
	switch t {
	case TypeText, TypeVideo, TypeHTML, TypeAudio:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, string(t))
}

// OverlayDefinition is a registered, reusable configuration for one kind of
// on-stream element. Name doubles as the event-topic root and, when
// StaticDir is set, as the URL prefix the directory is served under.
type OverlayDefinition struct {
	Name      string      `json:"name" yaml:"name"`
	Type      OverlayType `json:"type" yaml:"type"`
	Config    any         `json:"config,omitempty" yaml:"config,omitempty"`
	Layout    Layout      `json:"layout,omitempty" yaml:"layout,omitempty"`
	StaticDir string      `json:"static_dir,omitempty" yaml:"static_dir,omitempty"`
}

// ActiveOverlay is one currently-visible occurrence of a definition. Name,
// type and layout are copied at show time; later edits to the definition do
// not affect instances already on screen.
type ActiveOverlay struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Type    OverlayType `json:"type"`
	Layout  Layout      `json:"layout"`
	Payload any         `json:"payload,omitempty"`
}

// Snapshot is the layout-partitioned view of all active overlays sent to
// display clients. Partitions preserve relative insertion order.
type Snapshot struct {
	Fullscreen []ActiveOverlay `json:"fullscreen"`
	Center     []ActiveOverlay `json:"center"`
	Right      []ActiveOverlay `json:"right"`
	Left       []ActiveOverlay `json:"left"`
}

// PartitionByLayout projects the active list into a snapshot. Instances with
// an unknown layout are folded into center rather than dropped.
func PartitionByLayout(active []ActiveOverlay) Snapshot {
	snap := Snapshot{
		Fullscreen: []ActiveOverlay{},
		Center:     []ActiveOverlay{},
		Right:      []ActiveOverlay{},
		Left:       []ActiveOverlay{},
	}
	for _, inst := range active {
		switch inst.Layout {
		case LayoutFullscreen:
			snap.Fullscreen = append(snap.Fullscreen, inst)
		case LayoutRight:
			snap.Right = append(snap.Right, inst)
		case LayoutLeft:
			snap.Left = append(snap.Left, inst)
		default:
			snap.Center = append(snap.Center, inst)
		}
	}
	return snap
}

// Len is the total number of instances across all partitions.
func (s Snapshot) Len() int {
	return len(s.Fullscreen) + len(s.Center) + len(s.Right) + len(s.Left)
}
