package envutil

import (
	"testing"
	"time"
)

func TestReadersFallBackToDefault(t *testing.T) {
	t.Setenv("ROADMAP_TEST_INT", "nope")
	t.Setenv("ROADMAP_TEST_BOOL", "")
	t.Setenv("ROADMAP_TEST_DUR", "2s")
	t.Setenv("ROADMAP_TEST_STR", "  :9090 ")
	if got := Int("ROADMAP_TEST_INT", 7); got != 7 {
		t.Fatalf("Int: got %d", got)
	}
	if got := Bool("ROADMAP_TEST_BOOL", true); !got {
		t.Fatal("Bool: expected default true")
	}
	if got := Duration("ROADMAP_TEST_DUR", time.Second); got != 2*time.Second {
		t.Fatalf("Duration: got %s", got)
	}
	if got := String("ROADMAP_TEST_STR", ":8080"); got != ":9090" {
		t.Fatalf("String: got %q", got)
	}
}
