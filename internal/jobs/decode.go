package jobs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotArray is returned when a job list payload is not a JSON array.
var ErrNotArray = errors.New("job list is not an array")

var null = []byte("null")

// UnmarshalJSON decodes a loosely-typed job object. Fields whose values do not
// coerce to the expected type are left absent; explicit nulls reset the field.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode job: %w", err)
	}
	if raw == nil {
		return errors.New("decode job: not an object")
	}
	var out Patch
	if id := decodeString(raw["job_id"]); id.Set {
		out.JobID = strings.TrimSpace(id.Value)
	}
	out.URL = decodeString(raw["url"])
	if s := decodeString(raw["status"]); s.Set {
		out.Status = Some(Status(strings.ToLower(strings.TrimSpace(s.Value))))
	}
	out.MaxPages = decodeCount(raw["max_pages"])
	out.PagesAttempted = decodeCount(raw["pages_attempted"])
	out.PagesSuccess = decodeCount(raw["pages_success"])
	out.Errors = decodeCount(raw["errors"])
	out.QueueSize = decodeCount(raw["queue_size"])
	if f := decodeFloat(raw["pages_per_sec"]); f.Set {
		out.PagesPerSec = Some(math.Max(f.Value, 0))
	}
	out.StartTime = decodeOptionalFloat(raw["start_time"])
	out.LastURL = decodeString(raw["last_url"])
	out.LastError = decodeString(raw["last_error"])
	out.LastUpdate = decodeFloat(raw["last_update"])
	*p = out
	return nil
}

// DecodePatches decodes a job list. A missing or null list yields no patches;
// elements that are not objects or lack a job_id are skipped.
func DecodePatches(raw json.RawMessage) ([]Patch, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, null) {
		return nil, nil
	}
	if raw[0] != '[' {
		return nil, ErrNotArray
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode job list: %w", err)
	}
	out := make([]Patch, 0, len(items))
	for _, item := range items {
		var p Patch
		if err := json.Unmarshal(item, &p); err != nil || p.JobID == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// DecodeRecords decodes a snapshot job list into full records.
func DecodeRecords(raw json.RawMessage) ([]Record, error) {
	patches, err := DecodePatches(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(patches))
	for _, p := range patches {
		out = append(out, p.Record())
	}
	return out, nil
}

func decodeString(raw json.RawMessage) Field[string] {
	if raw == nil {
		return Field[string]{}
	}
	if bytes.Equal(raw, null) {
		return Some("")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Some(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return Some(n.String())
	}
	return Field[string]{}
}

func decodeFloat(raw json.RawMessage) Field[float64] {
	if raw == nil {
		return Field[float64]{}
	}
	if bytes.Equal(raw, null) {
		return Some(0.0)
	}
	v, ok := numeric(raw)
	if !ok {
		return Field[float64]{}
	}
	return Some(v)
}

func decodeCount(raw json.RawMessage) Field[int64] {
	f := decodeFloat(raw)
	if !f.Set {
		return Field[int64]{}
	}
	switch {
	case f.Value < 0:
		return Some(int64(0))
	case f.Value >= math.MaxInt64:
		return Some(int64(math.MaxInt64))
	}
	return Some(int64(f.Value))
}

func decodeOptionalFloat(raw json.RawMessage) Field[*float64] {
	if raw == nil {
		return Field[*float64]{}
	}
	if bytes.Equal(raw, null) {
		return Some[*float64](nil)
	}
	v, ok := numeric(raw)
	if !ok {
		return Field[*float64]{}
	}
	return Some(&v)
}

func numeric(raw json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
