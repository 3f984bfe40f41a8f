package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	for _, spec := range []string{"*/30 * * * *", "0 6 * * *", "@hourly"} {
		if err := Validate(spec); err != nil {
			t.Errorf("Validate(%q): %v", spec, err)
		}
	}
	for _, spec := range []string{"", "every minute", "* * *"} {
		if err := Validate(spec); err == nil {
			t.Errorf("Validate(%q) accepted", spec)
		}
	}
}

func TestAddRejectsBadSpec(t *testing.T) {
	r := New(time.UTC)
	if err := r.Add("refresh", "nope", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunNowAndStopCancelsContext(t *testing.T) {
	r := New(time.UTC)
	boom := errors.New("boom")
	if err := r.RunNow("fail", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("RunNow = %v", err)
	}

	var seen context.Context
	if err := r.RunNow("capture", func(ctx context.Context) error { seen = ctx; return nil }); err != nil {
		t.Fatal(err)
	}

	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)

	if seen.Err() == nil {
		t.Fatal("job context not canceled by Stop")
	}
}

func TestScheduledJobRuns(t *testing.T) {
	r := New(time.UTC)
	ran := make(chan struct{}, 1)
	// Six-field specs are not standard; use the every-second descriptor.
	if err := r.Add("tick", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	r.Start()
	defer r.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
