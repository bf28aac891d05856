package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/procurebot/src/notify"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingNotifier) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

func staticCheck(answers ...string) Check {
	var i atomic.Int32
	return func(context.Context) (string, error) {
		n := int(i.Add(1)) - 1
		if n >= len(answers) {
			n = len(answers) - 1
		}
		return answers[n], nil
	}
}

func TestNew(t *testing.T) {
	check := staticCheck("x")
	tests := []struct {
		name    string
		opts    Opts
		wantErr string
	}{
		{"no check", Opts{Schedule: "@daily"}, "check is required"},
		{"nothing to watch", Opts{Check: check}, "nothing to watch"},
		{"bad schedule", Opts{Check: check, Schedule: "every tuesday"}, "invalid schedule"},
		{"schedule", Opts{Check: check, Schedule: "0 7 * * 1-5"}, ""},
		{"descriptor", Opts{Check: check, Schedule: "@hourly"}, ""},
		{"file only", Opts{Check: check, InventoryPath: "data/inventory.csv"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultDebounce, w.opts.Debounce)
		})
	}
}

func TestRunOnce(t *testing.T) {
	n := &recordingNotifier{}
	w, err := New(Opts{
		Schedule: "@daily",
		Check:    staticCheck("C001 is low", "C001 is low", "All fine", "C001 is low"),
		Notifier: n,
		Quiet:    func(a string) bool { return a == "All fine" },
	})
	require.NoError(t, err)

	ctx := context.Background()
	w.RunOnce(ctx, "test")
	w.RunOnce(ctx, "test") // repeated answer
	w.RunOnce(ctx, "test") // quiet answer resets the repeat guard
	w.RunOnce(ctx, "test")

	sent := n.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Low stock alert", sent[0].Subject)
	assert.Equal(t, "C001 is low", sent[0].Body)
	assert.Equal(t, "C001 is low", sent[1].Body)
}

func TestRunOnce_CheckError(t *testing.T) {
	n := &recordingNotifier{}
	w, err := New(Opts{
		Schedule: "@daily",
		Check:    func(context.Context) (string, error) { return "", errors.New("model unavailable") },
		Notifier: n,
	})
	require.NoError(t, err)
	w.RunOnce(context.Background(), "test")
	assert.Empty(t, n.sent())
}

func TestTriggerCoalesces(t *testing.T) {
	w, err := New(Opts{Schedule: "@daily", Check: staticCheck("x")})
	require.NoError(t, err)
	w.Trigger("a")
	w.Trigger("b")
	assert.Len(t, w.triggers, 1)
	assert.Equal(t, "a", <-w.triggers)
}

func TestRun_InventoryChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte("product_id,product_name,storage\n"), 0o644))

	var calls atomic.Int32
	n := &recordingNotifier{}
	w, err := New(Opts{
		InventoryPath: path,
		Debounce:      20 * time.Millisecond,
		Check: func(context.Context) (string, error) {
			calls.Add(1)
			return "C002 is low", nil
		},
		Notifier: n,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Keep touching the file until the watcher is registered and reacts.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("product_id,product_name,storage\nC002,Goggles,0.01\n"), 0o644)
		return calls.Load() > 0
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	require.NotEmpty(t, n.sent())
	assert.Equal(t, "C002 is low", n.sent()[0].Body)
}
