package activity_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joestump/joe-forum/internal/activity"
)

type recorder struct {
	mu     sync.Mutex
	seen   []int
	failed []int
}

func (r *recorder) write(_ context.Context, e int) error {
	if e < 0 {
		return errors.New("negative")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, e)
	return nil
}

func (r *recorder) onErr(e int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, e)
}

func TestRun_WritesUntilClosed(t *testing.T) {
	ch := make(chan int, 4)
	rec := &recorder{}
	done := make(chan struct{})
	go func() {
		activity.Run(context.Background(), ch, rec.write, rec.onErr)
		close(done)
	}()

	ch <- 1
	ch <- -1
	ch <- 2
	close(ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
	if len(rec.seen) != 2 || rec.seen[0] != 1 || rec.seen[1] != 2 {
		t.Errorf("seen = %v, want [1 2]", rec.seen)
	}
	if len(rec.failed) != 1 || rec.failed[0] != -1 {
		t.Errorf("failed = %v, want [-1]", rec.failed)
	}
}

func TestRun_DrainsOnCancel(t *testing.T) {
	ch := make(chan int, 8)
	for i := 1; i <= 5; i++ {
		ch <- i
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	activity.Run(ctx, ch, rec.write, rec.onErr)

	if len(rec.seen) != 5 {
		t.Errorf("seen = %v, want all 5 queued events", rec.seen)
	}
}

func TestSend_DropsWhenFull(t *testing.T) {
	ch := make(chan int, 1)
	if !activity.Send(ch, 1) {
		t.Fatal("first send dropped")
	}
	if activity.Send(ch, 2) {
		t.Error("send on full queue reported success")
	}
}
