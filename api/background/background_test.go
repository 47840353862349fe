package background

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestShutdownWaits(t *testing.T) {
	log, hook := test.NewNullLogger()
	bg := New(log)

	var done atomic.Int32
	for i := 0; i < 3; i++ {
		bg.Run(func() {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
		})
	}
	bg.Run(func() { panic("boom") })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bg.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}

	if done.Load() != 3 {
		t.Fatalf("expected 3 finished tasks, got %d", done.Load())
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "background task panicked" {
		t.Fatal("expected the panic to be logged")
	}
}

func TestShutdownTimeout(t *testing.T) {
	log, _ := test.NewNullLogger()
	bg := New(log)

	release := make(chan struct{})
	defer close(release)
	bg.Run(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := bg.Shutdown(ctx); err == nil {
		t.Fatal("expected shutdown to give up on a stuck task")
	}
}

func TestRunAfterShutdown(t *testing.T) {
	log, hook := test.NewNullLogger()
	bg := New(log)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bg.Run(func() { ran.Add(1) })
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bg.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	before := ran.Load()
	bg.Run(func() { ran.Add(1) })
	if err := bg.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}

	if ran.Load() != before {
		t.Fatal("expected a task submitted after shutdown to be dropped")
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "background task dropped during shutdown" {
		t.Fatal("expected the dropped task to be logged")
	}
}
