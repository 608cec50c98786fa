// Package dicomlog is a leveled logging facade over logrus, in the shape of
// odincare-odicom's dicomlog package. The flows package logs through this
// facade instead of calling logrus (or the standard log package) directly,
// so verbosity is controlled from one place; the parser does not log.
package dicomlog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// level sets log verbosity. The larger the value, the more verbose. Setting
// it to -1 disables logging completely.
var level = int32(0)

// SetLevel sets log verbosity. Thread safe.
func SetLevel(l int) {
	atomic.StoreInt32(&level, int32(l))
}

// Level returns the current log level. Thread safe.
func Level() int {
	return int(atomic.LoadInt32(&level))
}

// Vprintf is shorthand for "if level >= l { logrus.Printf(...) }".
func Vprintf(l int, format string, args ...interface{}) {
	if Level() >= l {
		logrus.Printf(format, args...)
	}
}

// Errorf always logs at error level, regardless of the configured verbosity.
func Errorf(format string, args ...interface{}) {
	logrus.Errorf(format, args...)
}
