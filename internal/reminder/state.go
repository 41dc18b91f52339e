package reminder

// State is the scheduler lifecycle state. Transitions only move forward
// through initialization and permission, then oscillate between Idle and
// Scheduled as reminders are armed and canceled.
type State string

const (
	// StateUninitialized is the zero state before Initialize runs.
	StateUninitialized State = "uninitialized"
	// StateUnsupported means no notification sinks are configured at all.
	// Terminal; scheduling operations fail.
	StateUnsupported State = "unsupported"
	// StatePermissionDefault means sinks exist but none has been probed yet.
	StatePermissionDefault State = "permission_default"
	// StatePermissionDenied means every sink probe failed. RequestPermission
	// may be retried.
	StatePermissionDenied State = "permission_denied"
	// StateIdle means delivery is possible and no reminder is armed.
	StateIdle State = "idle"
	// StateScheduled means a daily reminder job is armed.
	StateScheduled State = "scheduled"
)

// Granted reports whether the state allows scheduling.
func (s State) Granted() bool {
	return s == StateIdle || s == StateScheduled
}
