// Package liveactivity implements the client half of the live-activity
// pipeline: token lifecycle management, the per-session activity state
// machine, and the HTTP client for the dispatch relay.
package liveactivity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ContentTypePreGame tags the countdown-with-title content variant. It is
// the only variant the widget currently renders.
const ContentTypePreGame = "preGame"

// ContentState is the structured data rendered by the live-activity
// surface, versioned via the Type discriminator.
type ContentState struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	StartTimeMs int64  `json:"startTimeMs"`
	EndTimeMs   int64  `json:"endTimeMs"`
}

// CountdownContent builds a preGame content state spanning now to
// now+duration, mirroring how the app derives timestamps from a duration
// picker.
func CountdownContent(title string, duration time.Duration) ContentState {
	start := time.Now().UnixMilli()
	return ContentState{
		Type:        ContentTypePreGame,
		Title:       title,
		StartTimeMs: start,
		EndTimeMs:   start + duration.Milliseconds(),
	}
}

// Validate checks the structural invariants of a content state: a known
// type tag, a non-empty title, and positive, ordered timestamps.
func (c ContentState) Validate() error {
	if c.Type != ContentTypePreGame {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown content state type %q", c.Type)}
	}
	if strings.TrimSpace(c.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if c.StartTimeMs <= 0 {
		return &ValidationError{Field: "startTimeMs", Message: "startTimeMs must be greater than zero"}
	}
	if c.EndTimeMs <= c.StartTimeMs {
		return &ValidationError{Field: "endTimeMs", Message: "endTimeMs must be after startTimeMs"}
	}
	return nil
}

// DecodeContentState parses a content state document, rejecting unknown
// type tags instead of coercing them into the countdown shape.
func DecodeContentState(data []byte) (ContentState, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ContentState{}, &ValidationError{Field: "payload", Message: "unable to parse content state"}
	}
	if probe.Type != ContentTypePreGame {
		return ContentState{}, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown content state type %q", probe.Type)}
	}

	var state ContentState
	if err := json.Unmarshal(data, &state); err != nil {
		return ContentState{}, &ValidationError{Field: "payload", Message: "unable to parse content state"}
	}
	if err := state.Validate(); err != nil {
		return ContentState{}, err
	}
	return state, nil
}
