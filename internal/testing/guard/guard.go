// Package guard switches the process into test mode when imported, so that
// tests can call main without starting the server.
package guard

import (
	"os"
	"sync"
)

// Env is the variable main checks before starting.
const Env = "OPSDASH_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(Env) == "" {
			_ = os.Setenv(Env, "1")
		}
	})
}
