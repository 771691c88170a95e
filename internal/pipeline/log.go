package pipeline

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// logClosure defers building an expensive log argument until the logger
// actually formats it.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}

func dumpClosure(v interface{}) logClosure {
	return newLogClosure(func() string {
		return spew.Sdump(v)
	})
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}
