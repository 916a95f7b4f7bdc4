package events

import "time"

// HandlerStart is emitted before a type handler is invoked. CallID is unique
// per executor and pairs the start with its HandlerFinish.
type HandlerStart struct {
	CallID     uint64
	Type       string
	Attributes []string
	Filter     map[string]any
}

// HandlerFinish is emitted after a handler returned. Skipped is set when the
// handler declared the filter combination unsupported and was not called.
type HandlerFinish struct {
	CallID   uint64
	Type     string
	Records  int
	Skipped  bool
	Err      error
	Duration time.Duration
}
