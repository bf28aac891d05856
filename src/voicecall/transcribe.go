package voicecall

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

type transcription struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

// Transcribe converts an audio recording to text. Busy responses (HTTP 429 or
// a system_busy status) are retried with a linearly growing wait; once the
// attempts are used up ErrServiceBusy is returned.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("audio recording is empty")
	}
	if filename == "" {
		filename = "recording.mp3"
	}

	logger := c.logger.With("method", "Transcribe", "file", filepath.Base(filename), "bytes", len(data))

	for attempt := 1; ; attempt++ {
		text, err := c.transcribeOnce(ctx, data, filename)
		if err == nil {
			logger.Debug("transcription complete", "attempt", attempt, "chars", len(text))
			return strings.TrimSpace(text), nil
		}
		if !isBusy(err) {
			return "", err
		}
		if attempt >= c.config.BusyAttempts {
			logger.Warn("speech-to-text still busy, giving up", "attempts", attempt)
			return "", fmt.Errorf("%w: %w", ErrServiceBusy, err)
		}

		wait := c.config.BusyBackoff * time.Duration(attempt)
		logger.Info("speech-to-text busy, retrying", "attempt", attempt, "wait", wait)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) transcribeOnce(ctx context.Context, data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("model_id", c.config.STTModel); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/speech-to-text", &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}
	var out transcription
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}
