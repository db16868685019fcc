package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/logger"
)

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(context.Background(), "every six hours", func(context.Context) error { return nil }, logger.Discard())
	if err == nil {
		t.Error("New() with invalid spec expected error, got nil")
	}
}

func TestNext_DefaultSchedule(t *testing.T) {
	s, err := New(context.Background(), "0 1,7,13,19 * * *", func(context.Context) error { return nil }, logger.Discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	next := s.Next()
	if next.IsZero() {
		t.Fatal("Next() returned zero time")
	}
	if next.Location() != time.UTC {
		t.Errorf("Next() location = %v, want UTC", next.Location())
	}
	switch next.Hour() {
	case 1, 7, 13, 19:
	default:
		t.Errorf("Next() hour = %d, want one of 1, 7, 13, 19", next.Hour())
	}
	if next.Minute() != 0 {
		t.Errorf("Next() minute = %d, want 0", next.Minute())
	}
}

func TestScheduler_Fires(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 1)
	var logs bytes.Buffer

	s, err := New(context.Background(), "@every 1s", func(context.Context) error {
		if runs.Add(1) == 1 {
			done <- struct{}{}
		}
		return errors.New("upstream down")
	}, logger.New(logger.LevelInfo, &logs))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Start()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not fire")
	}
	s.Stop()

	if runs.Load() < 1 {
		t.Error("expected at least one run")
	}
	if !strings.Contains(logs.String(), "Scheduled run failed") {
		t.Errorf("failed run should be logged: %s", logs.String())
	}
}

func TestToFields(t *testing.T) {
	fields := toFields([]interface{}{"entry", 1, "next", "soon", "dangling"})
	if len(fields) != 2 || fields["entry"] != 1 || fields["next"] != "soon" {
		t.Errorf("toFields() = %v", fields)
	}
	if toFields(nil) != nil {
		t.Error("toFields(nil) should be nil")
	}
}
