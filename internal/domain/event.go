package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawLine is one line read from a cluster connection or capture file.
type RawLine struct {
	Text       string
	Source     string // e.g. "telnet:dxc.example.net:7300" or "file:spots.txt"
	Session    string // telnet session ID, empty for files
	Seq        int64  // position within the session or file, from 1
	ReceivedAt time.Time
}

// SpotEvent is the envelope the pipeline publishes for each parsed line.
type SpotEvent struct {
	ID          string        `json:"id"`
	Category    Category      `json:"category"`
	Dialect     Dialect       `json:"dialect"`
	Source      string        `json:"source,omitempty"`
	Session     string        `json:"session,omitempty"`
	Seq         int64         `json:"seq,omitempty"`
	ReceivedAt  time.Time     `json:"received_at,omitzero"`
	ProcessedAt time.Time     `json:"processed_at"`
	LocatorGeo  Optional[Geo] `json:"locator_geo,omitzero"`
	Raw         string        `json:"raw"`
	Spot        Spot          `json:"spot"`
}

// OutputEvent is the serialized form handed to the sinks.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// NewSpotEvent wraps a classified line in its envelope.
func NewSpotEvent(raw RawLine, c Classification) SpotEvent {
	text := trimLine(raw.Text)
	ev := SpotEvent{
		ID:          generateID(c.Category, raw.ReceivedAt, text),
		Category:    c.Category,
		Dialect:     c.Dialect,
		Source:      raw.Source,
		Session:     raw.Session,
		Seq:         raw.Seq,
		ReceivedAt:  raw.ReceivedAt,
		ProcessedAt: clock.Now(),
		Raw:         text,
		Spot:        c.Spot,
	}
	if loc, ok := spotLocator(c.Spot); ok {
		if geo, err := LocatorToGeo(loc); err == nil {
			ev.LocatorGeo = Some(geo)
		}
	}
	return ev
}

// SerializeSpotEvent marshals an event for the sinks. The key is the event ID
// so that keyed sinks deduplicate and partition by it.
func SerializeSpotEvent(ev SpotEvent) (OutputEvent, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize spot event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(ev.ID),
		Value: data,
		Headers: map[string]string{
			"category":     string(ev.Category),
			"dialect":      string(ev.Dialect),
			"originator":   Originator(ev.Spot),
			"processed_at": ev.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// generateID produces a deterministic ID from the category, the UTC receive
// date and the trimmed line. Relays of the same spot on the same day collapse
// to one ID; a bulletin repeated the next day does not.
func generateID(category Category, receivedAt time.Time, line string) string {
	day := ""
	if !receivedAt.IsZero() {
		day = receivedAt.UTC().Format(time.DateOnly)
	}
	input := fmt.Sprintf("%s|%s|%s", category, day, line)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if category == "" {
		return short
	}
	return strings.ToLower(string(category)) + "-" + short
}
