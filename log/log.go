// Package log provides a small key-value logging facade for the step services.
//
// The core packages exp, schema, p21 and graph return structured errors and never
// log. The hub, repo and cmd layers log through this facade so embedders can swap
// or silence the sink.
package log

import (
	"github.com/sirupsen/logrus"
)

var Root Logger = New(logrus.StandardLogger())

// Logger is the logger interface. The variadic arguments are key value pairs. The key must be a
// string and the value should have a meaningful string representation.
type Logger interface {
	Debug(string, ...interface{})
	Error(string, ...interface{})
	Crit(string, ...interface{})
	With(...interface{}) Logger
}

// New returns a logger writing to the given logrus logger.
func New(l *logrus.Logger) Logger { return &Default{log: l} }

type Default struct {
	log  *logrus.Logger
	Tags []interface{}
}

func (l *Default) Debug(m string, s ...interface{}) { l.entry(s).Debug(m) }
func (l *Default) Error(m string, s ...interface{}) { l.entry(s).Error(m) }

// Crit logs at fatal level but leaves exiting to the caller.
func (l *Default) Crit(m string, s ...interface{}) { l.entry(s).Log(logrus.FatalLevel, m) }
func (l *Default) With(tags ...interface{}) Logger {
	return l.with(tags)
}
func (l *Default) with(tags []interface{}) *Default {
	t := make([]interface{}, 0, len(tags)+len(l.Tags))
	t = append(t, tags...)
	t = append(t, l.Tags...)
	return &Default{log: l.log, Tags: t}
}

func (l *Default) entry(s []interface{}) *logrus.Entry {
	return l.log.WithFields(fields(l.Tags, s))
}

func fields(all ...[]interface{}) logrus.Fields {
	f := make(logrus.Fields, 8)
	for _, tags := range all {
		var key string
		for i, v := range tags {
			if i%2 == 0 {
				key, _ = v.(string)
				continue
			}
			if key != "" {
				f[key] = v
			}
		}
	}
	return f
}
