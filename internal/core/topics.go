package core

// Wire-level event topics. Per-overlay topics embed the definition name, so
// they are built with the helpers below; the fixed topics are protocol
// constants shared with producers and displays.
const (
	TopicOverlaysAdd   = "overlays:add"
	TopicOverlaysState = "overlays:state"
	TopicEndOverlay    = "endOverlay"
)

func TopicShow(name string) string { return "overlay:" + name + ":show" }
func TopicHide(name string) string { return "overlay:" + name + ":hide" }
func TopicEnd(name string) string  { return "overlay:" + name + ":end" }
