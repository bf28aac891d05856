package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Options configures Run.
type Options struct {
	SessionID string
	Dev       bool
	Precheck  bool
	Logger    *slog.Logger

	// Input and Output default to the terminal.
	Input  io.Reader
	Output io.Writer
}

// Run starts the chat program and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, backend Backend, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	done := make(chan struct{})
	sink, events := newSink(logger, done)
	defer func() {
		close(done)
		sink.Close()
	}()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		logger.Warn("markdown rendering disabled", "error", err)
	}

	mopts := ModelOptions{
		SessionID: opts.SessionID,
		Dev:       opts.Dev,
		Precheck:  opts.Precheck,
		Logger:    logger,
	}
	if renderer != nil {
		mopts.Markdown = renderer
	}
	model := NewModel(ctx, backend, sink, events, mopts)

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	_, err = tea.NewProgram(model, progOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
