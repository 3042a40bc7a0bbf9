package testutil

import (
	"io"
	"sync"

	"github.com/lucas-albers-lz4/updock/pkg/log"
)

// mutex protects concurrent access to logger state
var mutex sync.Mutex

// SuppressLogging discards all log output until the returned function is called.
func SuppressLogging() func() {
	mutex.Lock()
	defer mutex.Unlock()

	restoreLog := log.SetOutput(io.Discard)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		restoreLog()
	}
}
