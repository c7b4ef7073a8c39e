package store

import (
	"errors"
	"testing"
	"time"
)

func TestSetRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sets()

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ws := &WorkoutSet{
		Movement:   "squat",
		Reps:       12,
		Duration:   95 * time.Second,
		StartedAt:  start,
		FinishedAt: start.Add(95 * time.Second),
	}

	if err := repo.Create(ws); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ws.ID == "" {
		t.Fatal("Create() should assign an ID")
	}
	if ws.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID(ws.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Movement != "squat" || got.Reps != 12 {
		t.Errorf("got %+v", got)
	}
	if got.Duration != 95*time.Second {
		t.Errorf("Duration = %v, want 1m35s", got.Duration)
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, start)
	}
}

func TestSetRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Sets().GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sets()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	seed := []struct {
		movement string
		reps     int
		hour     int
	}{
		{"squat", 10, 0},
		{"push-up", 15, 1},
		{"squat", 8, 2},
	}
	for _, sd := range seed {
		at := base.Add(time.Duration(sd.hour) * time.Hour)
		if err := repo.Create(&WorkoutSet{Movement: sd.movement, Reps: sd.reps, StartedAt: at, FinishedAt: at}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	t.Run("all newest first", func(t *testing.T) {
		sets, err := repo.List(SetFilter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sets) != 3 {
			t.Fatalf("expected 3 sets, got %d", len(sets))
		}
		if sets[0].Reps != 8 || sets[2].Reps != 10 {
			t.Errorf("unexpected order: %d, %d, %d", sets[0].Reps, sets[1].Reps, sets[2].Reps)
		}
	})

	t.Run("by movement", func(t *testing.T) {
		sets, err := repo.List(SetFilter{Movement: "squat"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sets) != 2 {
			t.Errorf("expected 2 squat sets, got %d", len(sets))
		}
	})

	t.Run("since and limit", func(t *testing.T) {
		sets, err := repo.List(SetFilter{Since: base.Add(30 * time.Minute), Limit: 1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sets) != 1 || sets[0].Reps != 8 {
			t.Errorf("unexpected result %+v", sets)
		}
	})

	t.Run("empty result", func(t *testing.T) {
		sets, err := repo.List(SetFilter{Movement: "lunge"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sets) != 0 {
			t.Errorf("expected no sets, got %d", len(sets))
		}
	})
}

func TestSetRepository_Totals(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sets()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for _, reps := range []int{10, 12} {
		repo.Create(&WorkoutSet{Movement: "squat", Reps: reps, Duration: time.Minute, StartedAt: now, FinishedAt: now})
	}
	repo.Create(&WorkoutSet{Movement: "lunge", Reps: 6, Duration: 30 * time.Second, StartedAt: now, FinishedAt: now})

	totals, err := repo.Totals()
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(totals))
	}

	lunge, squat := totals[0], totals[1]
	if lunge.Movement != "lunge" || lunge.Sets != 1 || lunge.Reps != 6 {
		t.Errorf("lunge totals = %+v", lunge)
	}
	if squat.Sets != 2 || squat.Reps != 22 || squat.BestSet != 12 || squat.Duration != 2*time.Minute {
		t.Errorf("squat totals = %+v", squat)
	}
}

func TestSetRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sets()

	now := time.Now()
	ws := &WorkoutSet{Movement: "squat", Reps: 3, StartedAt: now, FinishedAt: now}
	repo.Create(ws)

	if err := repo.Delete(ws.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ws.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ws.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestSetRepository_NegativeRepsRejected(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	err := s.Sets().Create(&WorkoutSet{Movement: "squat", Reps: -1, StartedAt: now, FinishedAt: now})
	if err == nil {
		t.Error("expected check constraint failure for negative reps")
	}
}
