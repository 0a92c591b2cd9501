// Package stream keeps the console's job model in sync with the crawl
// backend's push channel. A Client dials the event stream, decodes framed
// events on a reader goroutine, and applies them to a Store strictly in
// arrival order from a single dispatch loop, reconnecting after a fixed delay
// whenever the transport drops.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/crawl-console/internal/jobs"
)

// Type discriminates inbound events.
type Type string

// Event types understood by the dispatcher.
const (
	TypeSnapshot   Type = "snapshot"
	TypeStats      Type = "stats"
	TypeJobDeleted Type = "job_deleted"
	TypeJobStarted Type = "job_started"
)

// ErrMalformed wraps every payload decoding failure.
var ErrMalformed = errors.New("malformed stream event")

// Event is a decoded push-channel message.
type Event struct {
	Type Type
	// Snapshot holds the full job list of a snapshot event.
	Snapshot []jobs.Record
	// Patches holds the partial jobs of stats and job_started events.
	Patches []jobs.Patch
	// JobID names the job of a job_deleted event.
	JobID string
}

type envelope struct {
	Type  Type            `json:"type"`
	Jobs  json.RawMessage `json:"jobs"`
	Job   json.RawMessage `json:"job"`
	JobID json.RawMessage `json:"job_id"`
}

// Decode parses one frame payload. Unknown types decode successfully with
// only Type set so callers can ignore them.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	evt := Event{Type: env.Type}
	switch env.Type {
	case TypeSnapshot:
		records, err := jobs.DecodeRecords(env.Jobs)
		if err != nil {
			return Event{}, fmt.Errorf("%w: snapshot: %w", ErrMalformed, err)
		}
		evt.Snapshot = records
	case TypeStats:
		patches, err := jobs.DecodePatches(env.Jobs)
		if err != nil {
			return Event{}, fmt.Errorf("%w: stats: %w", ErrMalformed, err)
		}
		evt.Patches = patches
	case TypeJobStarted:
		var p jobs.Patch
		if err := json.Unmarshal(env.Job, &p); err != nil || p.JobID == "" {
			return Event{}, fmt.Errorf("%w: job_started without job", ErrMalformed)
		}
		evt.Patches = []jobs.Patch{p}
	case TypeJobDeleted:
		var id json.Number
		if err := json.Unmarshal(env.JobID, &id); err == nil && id != "" {
			evt.JobID = id.String()
			break
		}
		var s string
		if err := json.Unmarshal(env.JobID, &s); err != nil || s == "" {
			return Event{}, fmt.Errorf("%w: job_deleted without job_id", ErrMalformed)
		}
		evt.JobID = s
	}
	return evt, nil
}
