// Package testing puts binaries into test mode when imported by tests.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var testDefaults = map[string]string{
	"SMTP_HOST":         "127.0.0.1",
	"DOCUMENT_BASE_URL": "http://files.test/documents",
}

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("FLEXCARD_TEST_MODE", "1")
		for key, value := range testDefaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain lets packages reuse the test mode setup as their own TestMain.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
