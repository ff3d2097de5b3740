package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"twap-adapter/pkg/types"
	"twap-adapter/pkg/util"
)

const (
	DefaultRefreshInterval = 30 * time.Second // Recompute expiry every 30 seconds
	MinRefreshInterval     = time.Second
)

// CycleFunc fetches inputs and derives the orders for one refresh cycle
type CycleFunc func(ctx context.Context, now time.Time) ([]types.Order, error)

// Snapshot is the derived order list of one completed cycle
type Snapshot struct {
	ID     string
	Seq    uint64
	At     time.Time
	Orders []types.Order
}

// Watcher recomputes orders on a wall-clock tick and on demand. Only the most
// recently started cycle may publish; older cycles finishing late are discarded.
type Watcher struct {
	cycle    CycleFunc
	clock    util.Clock
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	started uint64
	latest  Snapshot
	subs    []func(Snapshot)
}

// NewWatcher creates a watcher for the given cycle
func NewWatcher(cycle CycleFunc, clock util.Clock, logger *zap.Logger) *Watcher {
	if clock == nil {
		clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		cycle:    cycle,
		clock:    clock,
		interval: DefaultRefreshInterval,
		logger:   logger,
	}
}

// SetInterval sets the refresh interval. A running watcher picks it up on
// its next tick.
func (w *Watcher) SetInterval(interval time.Duration) {
	if interval < MinRefreshInterval {
		interval = MinRefreshInterval
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = interval
}

// Interval returns the refresh interval
func (w *Watcher) Interval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval
}

// Subscribe registers fn to receive every published snapshot
func (w *Watcher) Subscribe(fn func(Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, fn)
}

// Latest returns the last published snapshot
func (w *Watcher) Latest() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest
}

// Refresh runs one cycle. It returns types.ErrStale when a newer cycle started
// before this one finished.
func (w *Watcher) Refresh(ctx context.Context) (Snapshot, error) {
	w.mu.Lock()
	w.started++
	seq := w.started
	w.mu.Unlock()

	now := w.clock.Now()
	orders, err := w.cycle(ctx, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh cycle %d: %w", seq, err)
	}

	snap := Snapshot{
		ID:     uuid.New().String(),
		Seq:    seq,
		At:     now,
		Orders: orders,
	}

	w.mu.Lock()
	if seq != w.started {
		w.mu.Unlock()
		w.logger.Debug("discarding stale cycle", zap.Uint64("seq", seq))
		return Snapshot{}, types.ErrStale
	}
	w.latest = snap
	subs := append([]func(Snapshot){}, w.subs...)
	w.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap, nil
}

// Run refreshes immediately and then on every tick until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	interval := w.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.refreshAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refreshAndLog(ctx)
			if next := w.Interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (w *Watcher) refreshAndLog(ctx context.Context) {
	snap, err := w.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, types.ErrStale) {
			w.logger.Warn("order refresh failed", zap.Error(err))
		}
		return
	}
	w.logger.Debug("orders refreshed",
		zap.String("snapshot", snap.ID),
		zap.Int("orders", len(snap.Orders)))
}
