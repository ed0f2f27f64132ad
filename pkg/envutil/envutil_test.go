package envutil

import (
	"testing"
	"time"
)

func TestStringFallsBackOnEmpty(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_STR", "  ")
	if got := String("ENVUTIL_TEST_STR", "fallback"); got != "fallback" {
		t.Fatalf("want fallback, got %q", got)
	}
	t.Setenv("ENVUTIL_TEST_STR", " value ")
	if got := String("ENVUTIL_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("want trimmed value, got %q", got)
	}
}

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "twelve")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("want 7, got %d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", "12")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 12 {
		t.Fatalf("want 12, got %d", got)
	}
}

func TestBoolAndDuration(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "true")
	if !Bool("ENVUTIL_TEST_BOOL", false) {
		t.Fatalf("want true")
	}
	t.Setenv("ENVUTIL_TEST_DUR", "150ms")
	if got := Duration("ENVUTIL_TEST_DUR", time.Second); got != 150*time.Millisecond {
		t.Fatalf("want 150ms, got %s", got)
	}
	t.Setenv("ENVUTIL_TEST_DUR", "soon")
	if got := Duration("ENVUTIL_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("want fallback, got %s", got)
	}
}
