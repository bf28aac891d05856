package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/executor"
	"github.com/elee1766/procurebot/src/session"
	"github.com/elee1766/procurebot/src/storage"
)

// DefaultImagePrompt accompanies an image sent without text.
const DefaultImagePrompt = "Please look at this image and identify the items I need."

// Chat is one conversation bound to the app's service. It runs one loop at
// a time.
type Chat struct {
	app *App

	mu             sync.Mutex
	sess           *session.Session
	stored         *storage.Session
	conversationID string
}

// ChatOptions selects the stored session to continue.
type ChatOptions struct {
	// SessionID continues a specific stored session.
	SessionID string
	// Resume continues the most recent stored session.
	Resume bool
}

// OpenChat starts or restores a chat. Without a database every chat is new.
func (a *App) OpenChat(ctx context.Context, opts ChatOptions) (*Chat, error) {
	if a.Service == nil {
		return nil, fmt.Errorf("app has no model configured")
	}
	c := &Chat{app: a}

	if a.Store == nil {
		if opts.SessionID != "" || opts.Resume {
			return nil, executor.ErrDatabaseRequired
		}
		c.sess = session.New()
		c.conversationID = c.sess.ID
		return c, nil
	}

	stored, err := a.Service.GetOrCreateSession(ctx, opts.SessionID, opts.Resume)
	if err != nil {
		return nil, err
	}
	conversation, err := a.Service.GetOrCreateConversation(ctx, stored)
	if err != nil {
		return nil, err
	}
	sess, err := a.Service.RestoreSession(ctx, stored, conversation)
	if err != nil {
		return nil, err
	}
	c.sess = sess
	c.stored = stored
	c.conversationID = conversation.ID
	return c, nil
}

// ID returns the session id.
func (c *Chat) ID() string { return c.sess.ID }

// Session returns the conversation state.
func (c *Chat) Session() *session.Session { return c.sess }

// Send answers one user input. The hidden precheck runs first when the
// configuration asks for it and the session has not run it yet.
func (c *Chat) Send(ctx context.Context, input *aisdk.Message, sink executor.EventSink) (*executor.RunResult, error) {
	if input == nil || (strings.TrimSpace(input.Content) == "" && len(input.Parts) == 0) {
		return nil, ErrEmptyInput
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.app.Config.Agent.PrecheckOnStart && !c.sess.PrecheckDone() {
		c.precheck(ctx, sink)
	}

	input.Role = aisdk.RoleUser
	result, err := c.app.Service.Run(ctx, &executor.RunRequest{
		Session:        c.sess,
		ConversationID: c.conversationID,
		Input:          input,
		EventSink:      sink,
	})
	c.saveFlags(ctx)
	return result, err
}

// Precheck runs the hidden stock check now. It returns
// executor.ErrPrecheckDone when the session already ran it.
func (c *Chat) Precheck(ctx context.Context, sink executor.EventSink) (*executor.RunResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.precheck(ctx, sink)
}

func (c *Chat) precheck(ctx context.Context, sink executor.EventSink) (*executor.RunResult, error) {
	result, err := c.app.Service.RunPrecheck(ctx, &executor.PrecheckRequest{
		Session:        c.sess,
		ConversationID: c.conversationID,
		Prompt:         c.app.PrecheckPrompt(),
		EventSink:      sink,
	})
	if err != nil && !errors.Is(err, executor.ErrPrecheckDone) {
		c.app.Logger.Warn("precheck failed", "error", err, "session_id", c.sess.ID)
	}
	c.saveFlags(ctx)
	return result, err
}

// Clear empties the conversation. With a database a new stored conversation
// begins and the old turns remain for auditing.
func (c *Chat) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stored == nil {
		c.sess.Clear()
		return nil
	}
	conv, err := c.app.Service.ClearSession(ctx, c.stored, c.sess)
	if err != nil {
		return err
	}
	c.conversationID = conv.ID
	return nil
}

func (c *Chat) saveFlags(ctx context.Context) {
	if c.stored == nil {
		return
	}
	if err := c.app.Service.SaveSessionFlags(ctx, c.stored, c.sess); err != nil {
		c.app.Logger.Error("failed to save session flags", "error", err, "session_id", c.sess.ID)
	}
}

// VoiceMessage transcribes a voice memo into a user message. A recording
// identical to the previous one is rejected with ErrDuplicateMedia.
func (c *Chat) VoiceMessage(ctx context.Context, audio io.Reader, filename string) (*aisdk.Message, error) {
	if c.app.Voice == nil {
		return nil, ErrVoiceDisabled
	}
	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	sum := sha256.Sum256(data)
	id, ok := c.sess.AcceptMedia(hex.EncodeToString(sum[:]))
	if !ok {
		return nil, ErrDuplicateMedia
	}

	text, err := c.app.Voice.Transcribe(ctx, bytes.NewReader(data), filename)
	if err != nil {
		return nil, err
	}
	c.app.Logger.Debug("transcribed voice memo", "media_input_id", id, "chars", len(text))
	c.saveFlags(ctx)
	return &aisdk.Message{Role: aisdk.RoleUser, Content: text}, nil
}

// VoiceFile is VoiceMessage for a file on disk.
func (c *Chat) VoiceFile(ctx context.Context, path string) (*aisdk.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.VoiceMessage(ctx, f, filepath.Base(path))
}

// ImageMessage builds a user message carrying text and one image.
func ImageMessage(text string, data []byte) (*aisdk.Message, error) {
	mimeType := http.DetectContentType(data)
	switch mimeType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, mimeType)
	}
	if strings.TrimSpace(text) == "" {
		text = DefaultImagePrompt
	}
	return &aisdk.Message{
		Role:    aisdk.RoleUser,
		Content: text,
		Parts:   []aisdk.ContentPart{aisdk.TextPart(text), aisdk.ImagePart(mimeType, data)},
	}, nil
}

// ImageFile is ImageMessage for a file on disk.
func ImageFile(text, path string) (*aisdk.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ImageMessage(text, data)
}
