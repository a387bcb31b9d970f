package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/kvstore"
)

var _ kvstore.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New returns a LogrusLogger tagging every entry with component=kvstore.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "kvstore")}
}

func (l LogrusLogger) Debug(msg string, f kvstore.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f kvstore.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f kvstore.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f kvstore.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f kvstore.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	err, isErr := f["err"].(error)
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if isErr && k == "err" {
			continue // rendered under logrus.ErrorKey
		}
		lf[k] = v
	}
	e := l.E.WithFields(lf)
	if isErr {
		e = e.WithError(err)
	}
	return e
}
