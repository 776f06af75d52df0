// Package testlog configures logging for tests and tags output with the test name.
package testlog

import (
	"testing"

	"github.com/danmuck/onebyte/internal/logging"
	"github.com/danmuck/onebyte/internal/logs"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logs.Infof("test=%s", t.Name())
}
