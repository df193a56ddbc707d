// Package guard switches the binaries into test mode when imported from a
// test, so calling main does not dial Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

// EnvVar is the flag app.InTestMode reads.
const EnvVar = "COURTSHARE_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}
