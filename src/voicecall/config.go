package voicecall

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultBaseURL  = "https://api.elevenlabs.io"
	DefaultAgentID  = "agent_7501kcc5xtwdejjrz72a4vhdywca"
	DefaultSTTModel = "scribe_v1"
)

// Config holds configuration for the ElevenLabs client.
type Config struct {
	APIKey        string
	BaseURL       string
	AgentID       string // conversational agent placing the call
	PhoneNumberID string // agent phone number id used for outbound calls
	STTModel      string

	PollInterval time.Duration // conversation status poll interval
	CallTimeout  time.Duration // upper bound on WaitForTranscript

	BusyAttempts int           // speech-to-text attempts while the service is busy
	BusyBackoff  time.Duration // wait is BusyBackoff * attempt

	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.AgentID == "" {
		c.AgentID = DefaultAgentID
	}
	if c.STTModel == "" {
		c.STTModel = DefaultSTTModel
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Minute
	}
	if c.BusyAttempts <= 0 {
		c.BusyAttempts = 3
	}
	if c.BusyBackoff <= 0 {
		c.BusyBackoff = 2 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
