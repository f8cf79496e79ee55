package sqlite

import (
	"database/sql"
	"time"

	"github.com/attnlab/dopamind/internal/domain"
)

// ─── Analytics Events ───────────────────────────────────────────────────────

// InsertAnalyticsEvent appends an event to the log.
func (d *DB) InsertAnalyticsEvent(e domain.AnalyticsEvent) error {
	metadata := e.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	_, err := d.db.Exec(
		`INSERT INTO analytics_events (id, session_id, name, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Name, metadata, e.CreatedAt.UnixMilli(),
	)
	return err
}

// TrimAnalyticsEvents keeps only the newest keep events. Returns rows removed.
func (d *DB) TrimAnalyticsEvents(keep int) (int64, error) {
	result, err := d.db.Exec(
		`DELETE FROM analytics_events
		 WHERE seq NOT IN (SELECT seq FROM analytics_events ORDER BY seq DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListAnalyticsEvents returns the newest events first, optionally filtered by name.
func (d *DB) ListAnalyticsEvents(name string, limit int) ([]domain.AnalyticsEvent, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if name == "" {
		rows, err = d.db.Query(
			`SELECT id, session_id, name, metadata, created_at
			 FROM analytics_events ORDER BY seq DESC LIMIT ?`, limit,
		)
	} else {
		rows, err = d.db.Query(
			`SELECT id, session_id, name, metadata, created_at
			 FROM analytics_events WHERE name = ? ORDER BY seq DESC LIMIT ?`, name, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AnalyticsEvent
	for rows.Next() {
		var e domain.AnalyticsEvent
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Name, &e.Metadata, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

// AnalyticsSummary aggregates the event log.
func (d *DB) AnalyticsSummary() (domain.AnalyticsSummary, error) {
	summary := domain.AnalyticsSummary{ByName: make(map[string]int)}

	err := d.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT session_id) FROM analytics_events`,
	).Scan(&summary.TotalEvents, &summary.Sessions)
	if err != nil {
		return summary, err
	}

	rows, err := d.db.Query(`SELECT name, COUNT(*) FROM analytics_events GROUP BY name`)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return summary, err
		}
		summary.ByName[name] = count
	}
	return summary, rows.Err()
}

// ClearAnalyticsEvents removes the whole log.
func (d *DB) ClearAnalyticsEvents() error {
	_, err := d.db.Exec(`DELETE FROM analytics_events`)
	return err
}
