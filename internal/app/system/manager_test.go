package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	name    string
	started *[]string
	stopped *[]string
	failOn  bool
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(ctx context.Context) error {
	if s.failOn {
		return errors.New("start failed")
	}
	*s.started = append(*s.started, s.name)
	return nil
}

func (s *recordingService) Stop(ctx context.Context) error {
	*s.stopped = append(*s.stopped, s.name)
	return nil
}

func TestManagerStartStopOrder(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordingService{name: name, started: &started, stopped: &stopped}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if len(started) != 3 || started[0] != "a" || started[2] != "c" {
		t.Fatalf("unexpected start order: %v", started)
	}
	if len(stopped) != 3 || stopped[0] != "c" || stopped[2] != "a" {
		t.Fatalf("unexpected stop order: %v", stopped)
	}
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	_ = m.Register(&recordingService{name: "ok", started: &started, stopped: &stopped})
	_ = m.Register(&recordingService{name: "bad", started: &started, stopped: &stopped, failOn: true})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if len(stopped) != 1 || stopped[0] != "ok" {
		t.Fatalf("expected rollback stop of ok, got %v", stopped)
	}
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	_ = m.Register(&recordingService{name: "dup", started: &started, stopped: &stopped})
	if err := m.Register(NoopService{ServiceName: "dup"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
