// Package metrics provides observability hooks for the daemon. Components
// receive a Recorder through dependency injection; the default NoopRecorder
// costs nothing, and the Prometheus implementation is activated when the
// metrics endpoint is enabled in config.
package metrics

import "time"

// AnswerLabel enumerates the answer sides for counters.
type AnswerLabel string

const (
	AnswerLeft  AnswerLabel = "left"
	AnswerRight AnswerLabel = "right"
)

// ReminderOutcome enumerates reminder delivery results.
type ReminderOutcome string

const (
	ReminderDelivered ReminderOutcome = "delivered"
	ReminderFailed    ReminderOutcome = "failed"
	ReminderSkipped   ReminderOutcome = "skipped"
)

// Recorder defines observability hooks for request handling, history
// mutations, and reminder delivery. All methods must be safe on the
// NoopRecorder so injection stays optional.
type Recorder interface {
	ObserveRequestDuration(method, path string, d time.Duration)
	IncRequestResult(path string, status int)
	IncAnswerRecorded(answer AnswerLabel)
	IncImport()
	IncReset()
	IncReminderOutcome(outcome ReminderOutcome)
	SetHistoryDays(n int)
	SetReminderArmed(armed bool)
	SetEventSubscribers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRequestDuration(string, string, time.Duration) {}
func (NoopRecorder) IncRequestResult(string, int)                         {}
func (NoopRecorder) IncAnswerRecorded(AnswerLabel)                        {}
func (NoopRecorder) IncImport()                                           {}
func (NoopRecorder) IncReset()                                            {}
func (NoopRecorder) IncReminderOutcome(ReminderOutcome)                   {}
func (NoopRecorder) SetHistoryDays(int)                                   {}
func (NoopRecorder) SetReminderArmed(bool)                                {}
func (NoopRecorder) SetEventSubscribers(int)                              {}
