package game

import (
	"sync"
	"time"
)

// task is a cancellable scheduled job backed by the game's clock. Cancelling
// an already-cancelled or already-fired task is a no-op.
type task struct {
	stop chan struct{}
	once sync.Once
}

func (t *task) cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.stop) })
}

// startTicker invokes fn on every tick until the task is cancelled. fn
// receives the task handle so handlers can recognize ticks from a schedule
// that has since been replaced and drop them.
func (g *Game) startTicker(d time.Duration, fn func(*task)) *task {
	t := &task{stop: make(chan struct{})}
	ticker := g.clock.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.Chan():
				fn(t)
			}
		}
	}()
	return t
}

// startTimer invokes fn once after d unless the task is cancelled first.
func (g *Game) startTimer(d time.Duration, fn func(*task)) *task {
	t := &task{stop: make(chan struct{})}
	timer := g.clock.NewTimer(d)
	go func() {
		select {
		case <-t.stop:
			// Stop and drain, per the time.Timer.Stop documentation.
			if !timer.Stop() {
				select {
				case <-timer.Chan():
				default:
				}
			}
		case <-timer.Chan():
			fn(t)
		}
	}()
	return t
}
