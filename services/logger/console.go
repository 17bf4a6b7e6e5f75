package logsvc

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/morris0411/ManavisGradesApp/core"
)

// ConsoleLogger prints structured lines; used in DEV and TEST instead of rollbar.
type ConsoleLogger struct {
	log *logrus.Logger
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(out io.Writer, debug bool) *ConsoleLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return &ConsoleLogger{log: l}
}

func (l ConsoleLogger) with(args []interface{}) *logrus.Entry {
	e := parseArgs(args)
	fields := logrus.Fields(e.extras)
	if e.user != nil {
		fields["user_id"] = e.user.ID
		fields["login_id"] = e.user.LoginID
	}
	entry := l.log.WithFields(fields)
	if e.err != nil {
		entry = entry.WithError(e.err)
	}
	return entry
}

func (l ConsoleLogger) Debug(msg string, args ...interface{}) { l.with(args).Debug(msg) }
func (l ConsoleLogger) Info(msg string, args ...interface{})  { l.with(args).Info(msg) }
func (l ConsoleLogger) Warn(msg string, args ...interface{})  { l.with(args).Warn(msg) }
func (l ConsoleLogger) Error(msg string, args ...interface{}) { l.with(args).Error(msg) }
func (l ConsoleLogger) Fatal(msg string, args ...interface{}) { l.with(args).Fatal(msg) }
