package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elee1766/procurebot/src/app"
)

// TranscribeCmd converts a voice memo to text
type TranscribeCmd struct {
	File string `arg:"" type:"existingfile" help:"Audio file to transcribe"`
}

func (c *TranscribeCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(ctx, cli, createCLILogger(cli.LogLevel), app.Options{NoModel: true, NoDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Voice == nil {
		return app.ErrVoiceDisabled
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	text, err := a.Voice.Transcribe(ctx, f, filepath.Base(c.File))
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
