package core

// Logger is any service that can log or report events.
// args may carry errors, map[string]interface{} extras and the acting user id (UserRef).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// UserRef identifies the authenticated caller in log reports.
type UserRef struct {
	ID      string
	LoginID string
}
