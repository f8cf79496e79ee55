package domain

import "time"

// AnalyticsEvent is one tracked interaction.
type AnalyticsEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	Metadata  string    `json:"metadata"` // JSON object
	CreatedAt time.Time `json:"timestamp"`
}

// AnalyticsSummary is the dashboard view of the event log.
type AnalyticsSummary struct {
	TotalEvents int            `json:"totalEvents"`
	Sessions    int            `json:"sessions"`
	ByName      map[string]int `json:"byName"`
}
