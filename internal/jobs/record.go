// Package jobs owns the console's live model of crawl jobs: the full Record
// shape, the field-level Patch delivered by stats events, and the Store that
// reconciles both into a stable, orderable collection.
package jobs

// Status represents the lifecycle state reported by the crawl backend.
type Status string

// Status values the backend emits. Unknown strings are kept verbatim.
const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether the status counts toward the "stopped" aggregate.
func (s Status) Terminal() bool {
	switch s {
	case StatusStopped, StatusDone, StatusError:
		return true
	default:
		return false
	}
}

// Record is one crawl job as observed by the console.
type Record struct {
	JobID          string   `json:"job_id"`
	URL            string   `json:"url"`
	Status         Status   `json:"status"`
	MaxPages       int64    `json:"max_pages"`
	PagesAttempted int64    `json:"pages_attempted"`
	PagesSuccess   int64    `json:"pages_success"`
	Errors         int64    `json:"errors"`
	QueueSize      int64    `json:"queue_size"`
	PagesPerSec    float64  `json:"pages_per_sec"`
	StartTime      *float64 `json:"start_time,omitempty"`
	LastURL        string   `json:"last_url,omitempty"`
	LastError      string   `json:"last_error,omitempty"`
	LastUpdate     float64  `json:"last_update"`
}

// Field is an optional value inside a Patch. Set distinguishes "absent" from
// "present with the zero value".
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a present Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f Field[T]) apply(dst *T) {
	if f.Set {
		*dst = f.Value
	}
}

// Patch is a partial Record: only fields marked Set overwrite the stored job.
type Patch struct {
	JobID          string
	URL            Field[string]
	Status         Field[Status]
	MaxPages       Field[int64]
	PagesAttempted Field[int64]
	PagesSuccess   Field[int64]
	Errors         Field[int64]
	QueueSize      Field[int64]
	PagesPerSec    Field[float64]
	StartTime      Field[*float64]
	LastURL        Field[string]
	LastError      Field[string]
	LastUpdate     Field[float64]
}

// Apply overwrites the fields present in p onto rec.
func (p Patch) Apply(rec *Record) {
	rec.JobID = p.JobID
	p.URL.apply(&rec.URL)
	p.Status.apply(&rec.Status)
	p.MaxPages.apply(&rec.MaxPages)
	p.PagesAttempted.apply(&rec.PagesAttempted)
	p.PagesSuccess.apply(&rec.PagesSuccess)
	p.Errors.apply(&rec.Errors)
	p.QueueSize.apply(&rec.QueueSize)
	p.PagesPerSec.apply(&rec.PagesPerSec)
	if p.StartTime.Set {
		rec.StartTime = copyFloat(p.StartTime.Value)
	}
	p.LastURL.apply(&rec.LastURL)
	p.LastError.apply(&rec.LastError)
	p.LastUpdate.apply(&rec.LastUpdate)
}

// Record materializes the patch as a full Record with absent fields zeroed.
func (p Patch) Record() Record {
	var rec Record
	p.Apply(&rec)
	return rec
}

// PatchOf returns a Patch with every field of rec present.
func PatchOf(rec Record) Patch {
	return Patch{
		JobID:          rec.JobID,
		URL:            Some(rec.URL),
		Status:         Some(rec.Status),
		MaxPages:       Some(rec.MaxPages),
		PagesAttempted: Some(rec.PagesAttempted),
		PagesSuccess:   Some(rec.PagesSuccess),
		Errors:         Some(rec.Errors),
		QueueSize:      Some(rec.QueueSize),
		PagesPerSec:    Some(rec.PagesPerSec),
		StartTime:      Some(copyFloat(rec.StartTime)),
		LastURL:        Some(rec.LastURL),
		LastError:      Some(rec.LastError),
		LastUpdate:     Some(rec.LastUpdate),
	}
}

func (r Record) clone() Record {
	r.StartTime = copyFloat(r.StartTime)
	return r
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
