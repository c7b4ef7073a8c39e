package store

import (
	"errors"
	"testing"
)

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get("movement"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if v, err := repo.GetDefault("movement", "squat"); err != nil || v != "squat" {
		t.Errorf("GetDefault() = %q, %v", v, err)
	}

	if err := repo.Set("movement", "lunge"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set("movement", "push-up"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if v, _ := repo.Get("movement"); v != "push-up" {
		t.Errorf("Get() = %q, want push-up", v)
	}

	if err := repo.Delete("movement"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete("movement"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}
