package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDate       = "date"
	KeyRow        = "row"
	KeyAnswer     = "answer"
	KeyDays       = "days"
	KeyReminderAt = "reminder_at"
	KeySchedState = "scheduler_state"
	KeySink       = "sink"
	KeyComponent  = "component"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "http_method"
	KeyPath       = "http_path"
	KeyStatus     = "http_status"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Date(d string) slog.Attr           { return slog.String(KeyDate, d) }
func Row(i int) slog.Attr               { return slog.Int(KeyRow, i) }
func Answer(a string) slog.Attr         { return slog.String(KeyAnswer, a) }
func Days(n int) slog.Attr              { return slog.Int(KeyDays, n) }
func ReminderAt(hhmm string) slog.Attr  { return slog.String(KeyReminderAt, hhmm) }
func SchedulerState(s string) slog.Attr { return slog.String(KeySchedState, s) }
func Sink(name string) slog.Attr        { return slog.String(KeySink, name) }
func Component(name string) slog.Attr   { return slog.String(KeyComponent, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr     { return slog.String(KeyRemoteAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
