package jobs

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatchUnmarshalTolerant(t *testing.T) {
	t.Parallel()

	var p Patch
	err := json.Unmarshal([]byte(`{
		"job_id": "a1",
		"status": "Running",
		"pages_success": "12",
		"errors": "lots",
		"queue_size": -3,
		"pages_per_sec": 1.5,
		"start_time": null,
		"last_url": "https://example.com/x",
		"unknown": {"nested": true}
	}`), &p)
	require.NoError(t, err)

	require.Equal(t, "a1", p.JobID)
	require.Equal(t, Some(StatusRunning), p.Status)
	require.Equal(t, Some(int64(12)), p.PagesSuccess)
	require.False(t, p.Errors.Set, "non-numeric counters are dropped")
	require.Equal(t, Some(int64(0)), p.QueueSize)
	require.Equal(t, Some(1.5), p.PagesPerSec)
	require.True(t, p.StartTime.Set)
	require.Nil(t, p.StartTime.Value)
	require.False(t, p.URL.Set)
	require.Equal(t, Some("https://example.com/x"), p.LastURL)
}

func TestPatchUnmarshalRejectsNonObject(t *testing.T) {
	t.Parallel()

	var p Patch
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &p))
	require.Error(t, json.Unmarshal([]byte(`null`), &p))
}

func TestDecodePatchesSkipsBadElements(t *testing.T) {
	t.Parallel()

	patches, err := DecodePatches(json.RawMessage(`[{"job_id":"a"}, 7, {"url":"no-id"}, {"job_id": 42}]`))
	require.NoError(t, err)
	require.Len(t, patches, 2)
	require.Equal(t, "a", patches[0].JobID)
	require.Equal(t, "42", patches[1].JobID)
}

func TestDecodePatchesShapes(t *testing.T) {
	t.Parallel()

	patches, err := DecodePatches(nil)
	require.NoError(t, err)
	require.Empty(t, patches)

	patches, err = DecodePatches(json.RawMessage(`null`))
	require.NoError(t, err)
	require.Empty(t, patches)

	_, err = DecodePatches(json.RawMessage(`{"job_id":"a"}`))
	require.ErrorIs(t, err, ErrNotArray)
}

func TestDecodeRecordsZeroesAbsentFields(t *testing.T) {
	t.Parallel()

	records, err := DecodeRecords(json.RawMessage(`[{"job_id":"a","status":"done","start_time":12.5}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, StatusDone, records[0].Status)
	require.Zero(t, records[0].PagesSuccess)
	require.NotNil(t, records[0].StartTime)
	require.InDelta(t, 12.5, *records[0].StartTime, 0)
}

func TestPatchOfRoundTripsRecord(t *testing.T) {
	t.Parallel()

	start := 3.0
	rec := Record{JobID: "a", URL: "u", Status: StatusPaused, MaxPages: 5, StartTime: &start, LastUpdate: 8}
	require.Equal(t, rec, PatchOf(rec).Record())
}

func TestDecodeCountClampsHugeValues(t *testing.T) {
	t.Parallel()

	patches, err := DecodePatches(json.RawMessage(`[
		{"job_id":"a","pages_success":1e30,"errors":"9.3e18","queue_size":-1e30}
	]`))
	require.NoError(t, err)
	require.Len(t, patches, 1)
	require.Equal(t, Some(int64(math.MaxInt64)), patches[0].PagesSuccess)
	require.Equal(t, Some(int64(math.MaxInt64)), patches[0].Errors)
	require.Equal(t, Some(int64(0)), patches[0].QueueSize)

	store := NewStore()
	store.MergePartial(patches)
	rec, ok := store.Get("a")
	require.True(t, ok)
	require.Equal(t, int64(math.MaxInt64), rec.PagesSuccess)
	require.Positive(t, store.Aggregates().TotalPages)

	store.MergePartial([]Patch{{JobID: "b", PagesSuccess: Some(int64(math.MaxInt64))}})
	require.Equal(t, int64(math.MaxInt64), store.Aggregates().TotalPages)
}
