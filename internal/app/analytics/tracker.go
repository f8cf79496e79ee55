// Package analytics records engine events in a bounded event log so the
// dashboard can report what users did and when.
package analytics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attnlab/dopamind/internal/domain"
	"github.com/attnlab/dopamind/internal/infra/eventbus"
)

// DefaultMaxEvents is the retention cap of the event log.
const DefaultMaxEvents = 1000

// Store is the event log backend. *sqlite.DB implements it.
type Store interface {
	InsertAnalyticsEvent(e domain.AnalyticsEvent) error
	TrimAnalyticsEvents(keep int) (int64, error)
	ListAnalyticsEvents(name string, limit int) ([]domain.AnalyticsEvent, error)
	AnalyticsSummary() (domain.AnalyticsSummary, error)
	ClearAnalyticsEvents() error
}

// Tracker appends events tagged with the current session id.
type Tracker struct {
	store     Store
	maxEvents int
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	sessionID string
}

// NewTracker creates a tracker with a fresh session id. maxEvents <= 0
// selects DefaultMaxEvents.
func NewTracker(store Store, maxEvents int, logger *slog.Logger) *Tracker {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:     store,
		maxEvents: maxEvents,
		logger:    logger.With("component", "analytics"),
		now:       time.Now,
		sessionID: uuid.NewString(),
	}
}

// SessionID returns the id stamped on new events.
func (t *Tracker) SessionID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessionID
}

// Track records one event. metadata may be nil.
func (t *Tracker) Track(name string, metadata any) error {
	if name == "" {
		return domain.InvalidArgument("Track", "event name is empty")
	}
	meta := "{}"
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(b)
	}

	ev := domain.AnalyticsEvent{
		ID:        uuid.NewString(),
		SessionID: t.SessionID(),
		Name:      name,
		Metadata:  meta,
		CreatedAt: t.now(),
	}
	if err := t.store.InsertAnalyticsEvent(ev); err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	if _, err := t.store.TrimAnalyticsEvents(t.maxEvents); err != nil {
		return fmt.Errorf("trim analytics events: %w", err)
	}
	return nil
}

// Attach records every bus event under its kind, with the event payload as
// metadata.
func (t *Tracker) Attach(bus *eventbus.Bus) (func(), error) {
	return bus.SubscribeAll(func(ev domain.Event) error {
		return t.Track(string(ev.Kind()), ev)
	})
}

// Events returns the newest events of one name.
func (t *Tracker) Events(name string, limit int) ([]domain.AnalyticsEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	return t.store.ListAnalyticsEvents(name, limit)
}

// Timeline returns the newest events of any name.
func (t *Tracker) Timeline(limit int) ([]domain.AnalyticsEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.store.ListAnalyticsEvents("", limit)
}

// Summary aggregates the whole log.
func (t *Tracker) Summary() (domain.AnalyticsSummary, error) {
	return t.store.AnalyticsSummary()
}

// Clear empties the log and starts a new session.
func (t *Tracker) Clear() error {
	if err := t.store.ClearAnalyticsEvents(); err != nil {
		return err
	}
	t.mu.Lock()
	t.sessionID = uuid.NewString()
	t.mu.Unlock()
	t.logger.Info("analytics log cleared")
	return nil
}

// ExportCSV writes the newest limit events, oldest first, as CSV.
func (t *Tracker) ExportCSV(w io.Writer, limit int) error {
	events, err := t.Timeline(limit)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "session_id", "name", "timestamp", "metadata"}); err != nil {
		return err
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		row := []string{e.ID, e.SessionID, e.Name, strconv.FormatInt(e.CreatedAt.UnixMilli(), 10), e.Metadata}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
