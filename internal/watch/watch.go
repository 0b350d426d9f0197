// Package watch polls unread counts for inbox tabs on a cron schedule.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sterlingconwell/courier-react/internal/config"
	"github.com/sterlingconwell/courier-react/internal/messages"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentPolls bounds the count queries in flight per run.
const maxConcurrentPolls = 4

// Counter is the subset of the inbox client the watcher needs.
type Counter interface {
	MessageCount(ctx context.Context, params *messages.FilterParams) (messages.Optional[int], error)
}

// ChangeFunc is invoked after a run for every tab whose unread count moved.
// prev is -1 on the first successful poll.
type ChangeFunc func(tab config.Tab, prev, cur int)

// TabStatus is the last known unread count of a tab.
type TabStatus struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Unread    int       `json:"unread"`
	Known     bool      `json:"known"`
	ChangedAt time.Time `json:"changed_at,omitempty"`
}

// Status describes the watcher state.
type Status struct {
	Schedule  string      `json:"schedule"`
	Running   bool        `json:"running"`
	Polling   bool        `json:"polling"`
	LastRun   time.Time   `json:"last_run,omitempty"`
	NextRun   time.Time   `json:"next_run"`
	LastError string      `json:"last_error,omitempty"`
	Tabs      []TabStatus `json:"tabs"`
}

// Watcher runs unread count polls for a fixed set of tabs.
type Watcher struct {
	cron     *cron.Cron
	counter  Counter
	tabs     []config.Tab
	logger   *slog.Logger
	onChange ChangeFunc

	mu        sync.RWMutex
	entryID   cron.EntryID
	schedule  string
	polling   bool
	lastRun   time.Time
	lastErr   error
	counts    map[string]int
	changedAt map[string]time.Time

	ctx     context.Context    // cancelled on Stop
	cancel  context.CancelFunc // cancels ctx
	wg      sync.WaitGroup     // tracks running polls
	started bool
	stopped bool
}

// New creates a watcher for tabs. Unread filters are derived from each tab's
// filters with isRead forced to false.
func New(counter Counter, tabs []config.Tab) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cron:      cron.New(cron.WithParser(config.ScheduleParser())),
		counter:   counter,
		tabs:      tabs,
		logger:    slog.Default(),
		counts:    make(map[string]int),
		changedAt: make(map[string]time.Time),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// WithLogger sets the logger for the watcher.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	w.logger = logger
	return w
}

// OnChange registers fn to be called when a tab's unread count changes.
func (w *Watcher) OnChange(fn ChangeFunc) *Watcher {
	w.onChange = fn
	return w
}

// SetSchedule installs the cron expression, replacing any previous one.
func (w *Watcher) SetSchedule(expr string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.entryID != 0 {
		w.cron.Remove(w.entryID)
		w.entryID = 0
		w.schedule = ""
	}

	id, err := w.cron.AddFunc(expr, func() {
		if !w.begin() {
			w.logger.Debug("skipping unread poll: previous run still active")
			return
		}
		w.run()
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	w.entryID = id
	w.schedule = expr
	w.logger.Info("scheduled unread watch",
		"schedule", expr,
		"tabs", len(w.tabs),
		"next_run", w.cron.Entry(id).Next)
	return nil
}

// Start begins executing the schedule.
func (w *Watcher) Start() {
	w.mu.Lock()
	w.started = true
	w.stopped = false
	w.mu.Unlock()

	w.cron.Start()
	w.logger.Info("unread watcher started", "schedule", w.schedule)
}

// IsRunning returns true if the watcher has been started and not yet stopped.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started && !w.stopped
}

// Stop halts the schedule and cancels in-flight polls. The returned context
// is done once all work has finished.
func (w *Watcher) Stop() context.Context {
	w.logger.Info("unread watcher stopping")

	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	cronCtx := w.cron.Stop()
	w.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		w.wg.Wait()
		cancel()
	}()
	return ctx
}

// Trigger starts a poll now, outside the schedule.
func (w *Watcher) Trigger() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher is stopped")
	}
	if w.polling {
		w.mu.Unlock()
		return fmt.Errorf("unread poll already running")
	}
	w.polling = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run()
	return nil
}

// begin marks a poll as running. It returns false when stopped or when a
// poll is already in flight.
func (w *Watcher) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.polling {
		return false
	}
	w.polling = true
	w.wg.Add(1)
	return true
}

// run polls every tab. The caller must have called begin or set polling
// and wg.Add(1).
func (w *Watcher) run() {
	defer w.wg.Done()
	defer func() {
		w.mu.Lock()
		w.polling = false
		w.mu.Unlock()
	}()

	start := time.Now()
	counts, err := w.Poll(w.ctx)

	type change struct {
		tab       config.Tab
		prev, cur int
	}
	var changes []change

	w.mu.Lock()
	if err != nil {
		w.lastErr = err
		w.logger.Error("unread poll failed", "duration", time.Since(start), "error", err)
	} else {
		w.lastRun = time.Now()
		w.lastErr = nil
		for _, tab := range w.tabs {
			cur := counts[tab.ID]
			prev, known := w.counts[tab.ID]
			if known && prev == cur {
				continue
			}
			if !known {
				prev = -1
			}
			w.counts[tab.ID] = cur
			w.changedAt[tab.ID] = w.lastRun
			changes = append(changes, change{tab, prev, cur})
		}
		w.logger.Info("unread poll completed", "duration", time.Since(start), "changed", len(changes))
	}
	w.mu.Unlock()

	for _, c := range changes {
		w.logger.Info("unread count changed", "tab", c.tab.ID, "previous", c.prev, "unread", c.cur)
		if w.onChange != nil {
			w.onChange(c.tab, c.prev, c.cur)
		}
	}
}

// Poll queries the unread count of every tab concurrently. Any failed count
// fails the whole poll.
func (w *Watcher) Poll(ctx context.Context) (map[string]int, error) {
	results := make([]int, len(w.tabs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPolls)
	for i, tab := range w.tabs {
		g.Go(func() error {
			filters := tab.Filters().WithRead(false)
			res, err := w.counter.MessageCount(gctx, &filters)
			if err != nil {
				return fmt.Errorf("count unread for tab %s: %w", tab.ID, err)
			}
			n, ok := res.Get()
			if !ok {
				return messages.ErrNotConfigured
			}
			results[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]int, len(w.tabs))
	for i, tab := range w.tabs {
		out[tab.ID] = results[i]
	}
	return out, nil
}

// Status returns a snapshot of the watcher state, with tabs in configured
// order.
func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	st := Status{
		Schedule: w.schedule,
		Running:  w.started && !w.stopped,
		Polling:  w.polling,
		LastRun:  w.lastRun,
		Tabs:     make([]TabStatus, 0, len(w.tabs)),
	}
	if w.entryID != 0 {
		st.NextRun = w.cron.Entry(w.entryID).Next
	}
	if w.lastErr != nil {
		st.LastError = w.lastErr.Error()
	}
	for _, tab := range w.tabs {
		n, known := w.counts[tab.ID]
		st.Tabs = append(st.Tabs, TabStatus{
			ID:        tab.ID,
			Label:     tab.DisplayLabel(),
			Unread:    n,
			Known:     known,
			ChangedAt: w.changedAt[tab.ID],
		})
	}
	return st
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	if _, err := config.ScheduleParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
