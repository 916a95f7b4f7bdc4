package events

import "time"

// QueryStart is emitted before a query is parsed.
type QueryStart struct {
	QueryID string
	Query   string
}

// QueryFinish is emitted after a query has been resolved or has failed.
// Code is empty on success.
type QueryFinish struct {
	QueryID  string
	Query    string
	Code     string
	Err      error
	Records  int
	Duration time.Duration
}
