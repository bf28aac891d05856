package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/executor"
)

// PromptCmd represents the single prompt command
type PromptCmd struct {
	Text       []string `arg:"" optional:"" help:"The prompt text to send"`
	File       string   `short:"f" help:"Load prompt from file ('-' reads stdin)"`
	Image      string   `short:"i" help:"Attach a photo" type:"existingfile"`
	Voice      string   `help:"Transcribe a voice memo and send it as the prompt" type:"existingfile"`
	Output     string   `short:"o" help:"Output format" enum:"text,json" default:"text"`
	Raw        bool     `help:"Print only the answers"`
	Dev        bool     `help:"Show tool calls and hidden turns"`
	NoStream   bool     `help:"Wait for complete answers instead of streaming"`
	NoPrecheck bool     `help:"Skip the stock check"`
	Resume     bool     `short:"r" help:"Resume the last session"`
	SessionID  string   `name:"session" help:"Resume a specific session by ID"`
}

// promptResult is the json output of a prompt.
type promptResult struct {
	SessionID  string `json:"session_id"`
	Answer     string `json:"answer"`
	State      string `json:"state"`
	Iterations int    `json:"iterations"`
	ModelCalls int    `json:"model_calls"`
}

func (p *PromptCmd) Run(ctx context.Context, cli *CLI) error {
	logger := createCLILogger(cli.LogLevel)

	text, err := p.promptText()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cli, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()
	if p.NoPrecheck {
		a.Config.Agent.PrecheckOnStart = false
	}
	if p.NoStream {
		a.Config.Agent.Stream = false
	}

	chat, err := a.OpenChat(ctx, app.ChatOptions{SessionID: p.SessionID, Resume: p.Resume})
	if err != nil {
		return err
	}

	input, err := p.buildInput(ctx, chat, text)
	if err != nil {
		return err
	}

	jsonOut := p.Output == "json"
	out := io.Writer(os.Stdout)
	if jsonOut {
		out = io.Discard
	}
	console := executor.NewConsoleEventProcessor(executor.ConsoleProcessorConfig{
		ShowToolArguments:  p.Dev,
		ShowToolResults:    p.Dev,
		ShowIntermediateAI: p.Dev,
		ShowInternal:       p.Dev,
		RawMode:            p.Raw,
		StreamMode:         a.Config.Agent.Stream,
		Out:                out,
	})
	sink := executor.NewChannelEventSink(logger, 100, console)

	result, err := chat.Send(ctx, input, sink)
	sink.Close()
	if err != nil {
		return err
	}
	if result.Err != nil {
		return result.Err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(promptResult{
			SessionID:  chat.ID(),
			Answer:     result.Final,
			State:      result.State.String(),
			Iterations: result.Iterations,
			ModelCalls: result.ModelCalls,
		})
	}
	if !p.Raw {
		fmt.Fprintf(os.Stderr, "\nsession %s\n", chat.ID())
	}
	return nil
}

// promptText joins the arguments or reads the prompt file.
func (p *PromptCmd) promptText() (string, error) {
	text := strings.Join(p.Text, " ")
	switch p.File {
	case "":
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimSpace(text + "\n" + string(data))
	default:
		data, err := os.ReadFile(p.File)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		text = strings.TrimSpace(text + "\n" + string(data))
	}
	if text == "" && p.Image == "" && p.Voice == "" {
		return "", fmt.Errorf("prompt text is required: %w", app.ErrEmptyInput)
	}
	return text, nil
}

// buildInput turns the prompt, photo, or voice memo into one user message.
func (p *PromptCmd) buildInput(ctx context.Context, chat *app.Chat, text string) (*aisdk.Message, error) {
	switch {
	case p.Voice != "":
		msg, err := chat.VoiceFile(ctx, p.Voice)
		if err != nil {
			return nil, err
		}
		if text != "" {
			msg.Content = text + "\n\n" + msg.Content
		}
		return msg, nil
	case p.Image != "":
		return app.ImageFile(text, p.Image)
	default:
		return &aisdk.Message{Role: aisdk.RoleUser, Content: text}, nil
	}
}
