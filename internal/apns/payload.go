// Package apns builds live-activity notification payloads and dispatches
// them to Apple's push service.
package apns

import (
	"time"

	"github.com/sideshow/apns2"

	"github.com/Renegades-Studio/live-activity-demo/pkg/liveactivity"
)

const (
	// Topic identifies the consuming app and the live-activity capability.
	Topic = "com.renegades.liveactivitydemo.push-type.liveactivity"

	// AttributesType is the discriminator string the OS uses to decode
	// the content-state schema.
	AttributesType = "WidgetAttributes"
)

// Event is a live-activity state transition.
type Event string

const (
	EventStart  Event = "start"
	EventUpdate Event = "update"
	EventEnd    Event = "end"
)

// Priority returns the APNs delivery priority for the event: immediate
// for start, power-conscious for update and end.
func (e Event) Priority() int {
	if e == EventStart {
		return apns2.PriorityHigh
	}
	return apns2.PriorityLow
}

// BuildNotification maps an event and its content into the notification
// the push provider transports. For start the content travels as both
// attributes and content-state; for update as content-state only; end
// carries neither since the activity is being torn down, not re-rendered.
// The alert strings feed an incidental system banner and have no effect
// on the rendered content state.
func BuildNotification(event Event, deviceToken string, content liveactivity.ContentState, now time.Time) *apns2.Notification {
	aps := map[string]any{
		"timestamp": now.Unix(),
		"event":     string(event),
	}

	switch event {
	case EventStart:
		state := contentStateMap(content)
		aps["attributes-type"] = AttributesType
		aps["attributes"] = state
		aps["content-state"] = state
		aps["alert"] = map[string]string{
			"title": "Live Activity Started!",
			"body":  content.Title + " - Check your Dynamic Island",
		}
	case EventUpdate:
		aps["content-state"] = contentStateMap(content)
		aps["alert"] = map[string]string{
			"title": "Live Activity Updated!",
			"body":  content.Title + " - Updated content available",
		}
	case EventEnd:
		aps["alert"] = map[string]string{
			"title": "Live Activity Ended",
			"body":  "The live activity has been completed",
		}
	}

	return &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       Topic,
		PushType:    apns2.PushTypeLiveActivity,
		Priority:    event.Priority(),
		Payload:     map[string]any{"aps": aps},
	}
}

func contentStateMap(content liveactivity.ContentState) map[string]any {
	return map[string]any{
		"type":        content.Type,
		"title":       content.Title,
		"startTimeMs": content.StartTimeMs,
		"endTimeMs":   content.EndTimeMs,
	}
}
