package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerRedirects(t *testing.T) {
	defer SetLogger(nil)

	var captured string
	SetLogger(func(format string, v ...interface{}) {
		captured = fmt.Sprintf(format, v...)
	})

	Logf("decoded %d frames", 42)
	if captured != "decoded 42 frames" {
		t.Errorf("expected captured log %q, got %q", "decoded 42 frames", captured)
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Logf("this goes nowhere %v", struct{}{})
}
