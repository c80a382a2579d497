// Package report implements the user-facing error reporting flow: an
// append-only log of data problems users spotted in the catalog,
// validated before anything is persisted.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"eventcal/internal/model"
	"eventcal/internal/storage"
)

// Report is one submitted error report. Event fields identify the
// event the report is about at submission time; they stay frozen even
// if the catalog changes underneath.
type Report struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"timestamp"`
	EventTitle    string    `json:"eventTitle"`
	EventDateTime string    `json:"eventDateTime"`
	EventPlace    string    `json:"eventPlace"`
	ErrorType     string    `json:"errorType" validate:"required"`
	Description   string    `json:"description" validate:"required"`
	UserEmail     string    `json:"userEmail,omitempty" validate:"omitempty,email"`
	Status        string    `json:"status"`
}

// StatusPending is the initial status of every accepted report.
const StatusPending = "pending"

// Log is the append-only report store.
type Log struct {
	kv       storage.KV
	validate *validator.Validate
	seq      atomic.Int64
}

// NewLog creates a report log over the given backend.
func NewLog(kv storage.KV) *Log {
	return &Log{
		kv:       kv,
		validate: validator.New(),
	}
}

// Submit validates and appends a report for the given event. Validation
// failures are returned before any state is mutated. ID, CreatedAt and
// Status are assigned here, not by the caller.
func (l *Log) Submit(ev model.Event, r Report) (Report, error) {
	r.EventTitle = ev.Title
	r.EventDateTime = ev.StartDateTime
	r.EventPlace = ev.PlaceName

	if err := l.validate.Struct(r); err != nil {
		return Report{}, fmt.Errorf("invalid report: %w", err)
	}

	r.CreatedAt = time.Now().UTC()
	r.ID = r.CreatedAt.UnixMilli()
	r.Status = StatusPending

	data, err := json.Marshal(r)
	if err != nil {
		return Report{}, err
	}
	// Millisecond IDs can collide for back-to-back submissions; the
	// sequence keeps the storage key unique regardless.
	key := fmt.Sprintf("%020d-%06d", r.ID, l.seq.Add(1))
	if err := l.kv.Put(storage.BucketReports, key, data); err != nil {
		return Report{}, err
	}
	return r, nil
}

// All returns every stored report in submission order.
func (l *Log) All() ([]Report, error) {
	entries, err := l.kv.List(storage.BucketReports)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Report, 0, len(keys))
	for _, key := range keys {
		var r Report
		if err := json.Unmarshal(entries[key], &r); err != nil {
			// Skip unreadable entries rather than failing the listing.
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Clear removes every stored report.
func (l *Log) Clear() error {
	entries, err := l.kv.List(storage.BucketReports)
	if err != nil {
		return err
	}
	for key := range entries {
		if err := l.kv.Delete(storage.BucketReports, key); err != nil {
			return err
		}
	}
	return nil
}
