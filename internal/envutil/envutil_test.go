package envutil

import (
	"testing"
	"time"
)

func TestGetEnvOrFallback(t *testing.T) {
	t.Setenv("UTVIEW_TEST_VALUE", "")
	if got := GetEnvOrFallback("UTVIEW_TEST_VALUE", "fallback"); got != "fallback" {
		t.Fatalf("expected the fallback, got %q", got)
	}
	t.Setenv("UTVIEW_TEST_VALUE", "set")
	if got := GetEnvOrFallback("UTVIEW_TEST_VALUE", "fallback"); got != "set" {
		t.Fatalf("expected the environment value, got %q", got)
	}
}

func TestGetDaysOrFallback(t *testing.T) {
	t.Setenv("UTVIEW_TEST_DAYS", "")
	got, err := GetDaysOrFallback("UTVIEW_TEST_DAYS", 30)
	if err != nil || got != 30*24*time.Hour {
		t.Fatalf("expected 30 days, got %v (%v)", got, err)
	}
	t.Setenv("UTVIEW_TEST_DAYS", "2")
	got, err = GetDaysOrFallback("UTVIEW_TEST_DAYS", 30)
	if err != nil || got != 48*time.Hour {
		t.Fatalf("expected 2 days, got %v (%v)", got, err)
	}
	t.Setenv("UTVIEW_TEST_DAYS", "two")
	if _, err := GetDaysOrFallback("UTVIEW_TEST_DAYS", 30); err == nil {
		t.Fatal("expected a parsing error")
	}
}
