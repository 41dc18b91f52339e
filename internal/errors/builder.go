package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
// This makes error creation consistent and discoverable throughout the codebase.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError, // Default severity
		retry:    RetryNever,    // Default to no retry
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		cause:    err,
		context:  make(ErrorContext),
	}
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithRetry sets the retry strategy.
func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// UserAction sets the retry strategy to require user action.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	return b.WithRetry(RetryUser)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for the inventoryd error taxonomy.

// StorageError creates a persistence read/write error. The store degrades to
// empty or stale state rather than crashing, so severity is warning.
func StorageError(message string) *ErrorBuilder {
	return NewError(CategoryStorage, message).Warning()
}

// ImportError creates a malformed-import error; the prior state is preserved.
func ImportError(message string) *ErrorBuilder {
	return NewError(CategoryImport, message).UserAction()
}

// PermissionError creates a notification permission error; the feature is
// disabled for the session, never fatal.
func PermissionError(message string) *ErrorBuilder {
	return NewError(CategoryPermission, message).UserAction()
}

// NotificationError creates a delivery failure; retried implicitly on the next
// scheduled fire, never immediately.
func NotificationError(message string) *ErrorBuilder {
	return NewError(CategoryNotification, message).WithRetry(RetryNextCycle)
}

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).UserAction()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Warning()
}

// NotFoundError creates a not-found error.
func NotFoundError(resource string) *ErrorBuilder {
	return NewError(CategoryNotFound, resource+" not found")
}

// DaemonError creates a daemon lifecycle error.
func DaemonError(message string) *ErrorBuilder {
	return NewError(CategoryDaemon, message)
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message)
}
