package analytics

import "time"

type EventType string

const (
	EventParse        EventType = "parse"
	EventQueryTooLong EventType = "query_too_long"
)

// ParseEvent describes one request served by the parse API.
type ParseEvent struct {
	Type                EventType `json:"type"`
	Query               string    `json:"query"`
	QueryLength         int       `json:"query_length"`
	CrossSearchStrategy string    `json:"cross_search_strategy,omitempty"`
	Classes             []string  `json:"classes,omitempty"`
	FeaturesUsed        []string  `json:"features_used,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
	TooLongKind         string    `json:"too_long_kind,omitempty"`
	CacheLevel          string    `json:"cache_level,omitempty"`
	LatencyMicros       int64     `json:"latency_us"`
	Timestamp           time.Time `json:"timestamp"`
	RequestID           string    `json:"request_id,omitempty"`
}

// Tracker accepts parse events for asynchronous publication. Track must not
// block the request path.
type Tracker interface {
	Track(event ParseEvent)
}
