package server

import (
	"testing"

	"go.uber.org/goleak"
)

// Dispatcher goroutines must be gone once their context is cancelled.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
