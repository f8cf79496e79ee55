package memstore

import (
	"errors"
	"testing"
)

func TestStore_RoundTrip(t *testing.T) {
	s := New()
	if got, _ := s.Get("k"); got != "" {
		t.Errorf("Get() on empty store = %q", got)
	}
	_ = s.Set("k", "v")
	if got, _ := s.Get("k"); got != "v" {
		t.Errorf("Get() = %q, want v", got)
	}
	_ = s.Delete("k")
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Delete", s.Len())
	}
}

func TestStore_Failing(t *testing.T) {
	s := New()
	s.SetFailing(true)

	if _, err := s.Get("k"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Get() err = %v", err)
	}
	if err := s.Set("k", "v"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Set() err = %v", err)
	}

	s.SetFailing(false)
	if err := s.Set("k", "v"); err != nil {
		t.Errorf("Set() after recovery: %v", err)
	}
}
