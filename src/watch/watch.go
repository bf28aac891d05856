// Package watch runs the stock check in the background: on a cron schedule
// and whenever the inventory file changes. Each answer that reports low
// stock is posted to the notifiers.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/elee1766/procurebot/src/notify"
)

// DefaultDebounce is how long file events must settle before a check runs.
const DefaultDebounce = 2 * time.Second

// Check runs one stock check and returns the answer.
type Check func(ctx context.Context) (string, error)

// Opts configures a Watcher.
type Opts struct {
	// Schedule is a cron spec; empty disables the timer.
	Schedule string
	Parser   cron.ScheduleParser

	// InventoryPath is watched for changes; empty disables the file watch.
	InventoryPath string
	Debounce      time.Duration

	Check    Check
	Notifier notify.Notifier

	// Quiet answers are logged but not posted.
	Quiet func(answer string) bool

	Logger *slog.Logger
}

// Watcher triggers checks and posts their answers.
type Watcher struct {
	opts     Opts
	schedule cron.Schedule
	triggers chan string
	logger   *slog.Logger

	mu   sync.Mutex
	last string
}

// New validates opts and creates a watcher.
func New(opts Opts) (*Watcher, error) {
	if opts.Check == nil {
		return nil, errors.New("watch: check is required")
	}
	if opts.Schedule == "" && opts.InventoryPath == "" {
		return nil, errors.New("watch: nothing to watch, set a schedule or an inventory path")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Parser == nil {
		opts.Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Watcher{
		opts:     opts,
		triggers: make(chan string, 1),
		logger:   opts.Logger.With("component", "watch"),
	}
	if opts.Schedule != "" {
		sched, err := opts.Parser.Parse(opts.Schedule)
		if err != nil {
			return nil, fmt.Errorf("watch: invalid schedule %q: %w", opts.Schedule, err)
		}
		w.schedule = sched
	}
	return w, nil
}

// Trigger queues a check. Triggers arriving while one is queued coalesce.
func (w *Watcher) Trigger(reason string) {
	select {
	case w.triggers <- reason:
	default:
		w.logger.Debug("check already queued", "reason", reason)
	}
}

// Run blocks until ctx is cancelled or the file watch fails.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.schedule != nil {
		c := cron.New()
		c.Schedule(w.schedule, cron.FuncJob(func() { w.Trigger("schedule") }))
		c.Start()
		w.logger.Info("scheduled stock check", "schedule", w.opts.Schedule, "next", w.schedule.Next(time.Now()))
		g.Go(func() error {
			<-ctx.Done()
			<-c.Stop().Done()
			return nil
		})
	}

	if w.opts.InventoryPath != "" {
		g.Go(func() error { return w.watchFile(ctx) })
	}

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case reason := <-w.triggers:
				w.RunOnce(ctx, reason)
			}
		}
	})

	return g.Wait()
}

// watchFile watches the directory holding the inventory so atomic
// replacements are seen, and triggers once events settle.
func (w *Watcher) watchFile(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(w.opts.InventoryPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w.logger.Info("watching inventory", "path", target)

	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger.Debug("inventory event", "op", ev.Op.String())
			timer.Reset(w.opts.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watch error", "error", err)
		case <-timer.C:
			w.Trigger("inventory changed")
		}
	}
}

// RunOnce runs the check and posts the answer. Quiet answers and answers
// identical to the previous post are not sent again.
func (w *Watcher) RunOnce(ctx context.Context, reason string) {
	start := time.Now()
	answer, err := w.opts.Check(ctx)
	if err != nil {
		w.logger.Error("stock check failed", "reason", reason, "error", err)
		return
	}
	answer = strings.TrimSpace(answer)
	w.logger.Info("stock check complete", "reason", reason, "duration", time.Since(start))

	if answer == "" || (w.opts.Quiet != nil && w.opts.Quiet(answer)) {
		w.reset()
		return
	}

	w.mu.Lock()
	repeated := answer == w.last
	w.last = answer
	w.mu.Unlock()
	if repeated || w.opts.Notifier == nil {
		return
	}

	msg := notify.Message{Subject: "Low stock alert", Body: answer}
	if err := w.opts.Notifier.Notify(ctx, msg); err != nil {
		w.logger.Error("failed to post stock alert", "error", err)
	}
}

func (w *Watcher) reset() {
	w.mu.Lock()
	w.last = ""
	w.mu.Unlock()
}
