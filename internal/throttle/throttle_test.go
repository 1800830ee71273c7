package throttle

import (
	"context"
	"testing"
	"time"
)

func TestMemoryScheduler_FirstAdmissionAlwaysPasses(t *testing.T) {
	s := NewMemoryScheduler(time.Minute)
	defer s.Close()

	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	admitted, err := s.Admit(ctx, "obs_st", now, false)
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if !admitted {
		t.Error("first Admit() = false, want true")
	}
}

func TestMemoryScheduler_OneAdmissionPerWindow(t *testing.T) {
	interval := time.Minute
	s := NewMemoryScheduler(interval)
	defer s.Close()

	ctx := context.Background()
	start := time.Unix(1700000000, 0)

	// Samples arriving every second, far faster than the interval
	admissions := 0
	for i := 0; i < 180; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		admitted, err := s.Admit(ctx, "rapid_wind", now, false)
		if err != nil {
			t.Fatalf("Admit() error = %v", err)
		}
		if admitted {
			admissions++
		}
	}

	// 180s of samples with a 60s interval: admissions at t=0, t=60, t=120
	if admissions != 3 {
		t.Errorf("admissions = %d, want 3", admissions)
	}
}

func TestMemoryScheduler_AdmitsExactlyAtInterval(t *testing.T) {
	interval := time.Minute
	s := NewMemoryScheduler(interval)
	defer s.Close()

	ctx := context.Background()
	start := time.Unix(1700000000, 0)

	if admitted, _ := s.Admit(ctx, "obs_st", start, false); !admitted {
		t.Fatal("first Admit() = false, want true")
	}

	// One nanosecond early: dropped
	if admitted, _ := s.Admit(ctx, "obs_st", start.Add(interval-time.Nanosecond), false); admitted {
		t.Error("Admit() just before interval = true, want false")
	}

	// Exactly the interval: admitted (elapsed >= interval)
	if admitted, _ := s.Admit(ctx, "obs_st", start.Add(interval), false); !admitted {
		t.Error("Admit() at exactly the interval = false, want true")
	}
}

func TestMemoryScheduler_TypesAreIndependent(t *testing.T) {
	s := NewMemoryScheduler(time.Minute)
	defer s.Close()

	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	// A burst of rapid_wind admissions must not affect obs_st
	if admitted, _ := s.Admit(ctx, "rapid_wind", now, false); !admitted {
		t.Fatal("rapid_wind first Admit() = false, want true")
	}
	if admitted, _ := s.Admit(ctx, "rapid_wind", now.Add(time.Second), false); admitted {
		t.Fatal("rapid_wind second Admit() = true, want false")
	}

	if admitted, _ := s.Admit(ctx, "obs_st", now.Add(2*time.Second), false); !admitted {
		t.Error("obs_st Admit() = false, want true (types must throttle independently)")
	}
	if admitted, _ := s.Admit(ctx, "hub_status", now.Add(3*time.Second), false); !admitted {
		t.Error("hub_status Admit() = false, want true (types must throttle independently)")
	}
}

func TestMemoryScheduler_ForceAlwaysAdmits(t *testing.T) {
	s := NewMemoryScheduler(time.Minute)
	defer s.Close()

	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	if admitted, _ := s.Admit(ctx, "hub_status", now, false); !admitted {
		t.Fatal("first Admit() = false, want true")
	}

	// Within the interval, force bypasses the check
	if admitted, _ := s.Admit(ctx, "hub_status", now.Add(time.Second), true); !admitted {
		t.Error("forced Admit() = false, want true")
	}

	// The forced admission updated the timestamp: an unforced admission
	// one interval after the ORIGINAL time is still inside the new window
	if admitted, _ := s.Admit(ctx, "hub_status", now.Add(time.Minute), false); admitted {
		t.Error("Admit() after forced update = true, want false (force must update the timestamp)")
	}

	if admitted, _ := s.Admit(ctx, "hub_status", now.Add(time.Second+time.Minute), false); !admitted {
		t.Error("Admit() one interval after forced update = false, want true")
	}
}

func TestMemoryScheduler_Close(t *testing.T) {
	s := NewMemoryScheduler(time.Minute)
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
