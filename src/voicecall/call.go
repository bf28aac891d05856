package voicecall

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CallRequest carries the dynamic variables the calling agent speaks from.
type CallRequest struct {
	ToNumber    string
	OrderList   string
	TargetPrice string
	SiteAddress string
	VendorName  string
}

type outboundCallRequest struct {
	AgentID            string                 `json:"agent_id"`
	AgentPhoneNumberID string                 `json:"agent_phone_number_id"`
	ToNumber           string                 `json:"to_number"`
	InitiationData     conversationInitiation `json:"conversation_initiation_client_data"`
}

type conversationInitiation struct {
	DynamicVariables map[string]string `json:"dynamic_variables"`
}

type outboundCallResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	CallSID        string `json:"callSid"`
}

// Conversation status values reported by the API.
const (
	StatusInitiated  = "initiated"
	StatusInProgress = "in-progress"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// TranscriptEntry is one utterance in a call.
type TranscriptEntry struct {
	Role           string  `json:"role"`
	Message        string  `json:"message"`
	TimeInCallSecs float64 `json:"time_in_call_secs"`
}

// Conversation is the state of a conversational agent session.
type Conversation struct {
	ConversationID string            `json:"conversation_id"`
	Status         string            `json:"status"`
	Transcript     []TranscriptEntry `json:"transcript"`
}

// Finished reports whether the conversation reached a terminal status.
func (c *Conversation) Finished() bool {
	switch c.Status {
	case StatusDone, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// TranscriptText renders the transcript one "role: message" line per utterance.
func (c *Conversation) TranscriptText() string {
	var b strings.Builder
	for _, e := range c.Transcript {
		if strings.TrimSpace(e.Message) == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", e.Role, strings.TrimSpace(e.Message))
	}
	return strings.TrimRight(b.String(), "\n")
}

// CallResult is the outcome of an outbound call.
type CallResult struct {
	ConversationID string
	Status         string
	Transcript     string
	Success        bool
}

// StartCall places an outbound call and returns its conversation id.
func (c *Client) StartCall(ctx context.Context, call CallRequest) (string, error) {
	body := outboundCallRequest{
		AgentID:            c.config.AgentID,
		AgentPhoneNumberID: c.config.PhoneNumberID,
		ToNumber:           call.ToNumber,
		InitiationData: conversationInitiation{DynamicVariables: map[string]string{
			"order_list":   call.OrderList,
			"target_price": call.TargetPrice,
			"site_address": call.SiteAddress,
			"vendor_name":  call.VendorName,
		}},
	}

	var out outboundCallResponse
	if err := c.postJSON(ctx, "/v1/convai/twilio/outbound-call", body, &out); err != nil {
		return "", err
	}
	if out.ConversationID == "" {
		if out.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrNoConversation, out.Message)
		}
		return "", ErrNoConversation
	}
	c.logger.Info("outbound call started", "conversation_id", out.ConversationID, "vendor", call.VendorName)
	return out.ConversationID, nil
}

// GetConversation fetches the current state of a conversation.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/convai/conversations/"+url.PathEscape(conversationID), nil, "")
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := c.do(req, &conv); err != nil {
		return nil, err
	}
	if conv.ConversationID == "" {
		conv.ConversationID = conversationID
	}
	return &conv, nil
}

// WaitForTranscript polls the conversation until it finishes, the configured
// call timeout elapses, or ctx is cancelled. Transient API errors are logged
// and polling continues. On timeout the last observed state is returned along
// with ErrCallTimeout.
func (c *Client) WaitForTranscript(ctx context.Context, conversationID string) (*CallResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	logger := c.logger.With("method", "WaitForTranscript", "conversation_id", conversationID)
	result := &CallResult{ConversationID: conversationID}

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		conv, err := c.GetConversation(ctx, conversationID)
		switch {
		case err == nil:
			result.Status = conv.Status
			result.Transcript = conv.TranscriptText()
			if conv.Finished() {
				result.Success = conv.Status != StatusFailed
				logger.Info("call finished", "status", conv.Status, "utterances", len(conv.Transcript))
				return result, nil
			}
		case ctx.Err() != nil:
			// fall through to the ctx check below
		case isRetryable(err):
			logger.Debug("transient poll error", "error", err)
		default:
			return result, err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.Warn("call timed out", "last_status", result.Status)
				return result, ErrCallTimeout
			}
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Call starts an outbound call and waits for its transcript.
func (c *Client) Call(ctx context.Context, call CallRequest) (*CallResult, error) {
	id, err := c.StartCall(ctx, call)
	if err != nil {
		return nil, err
	}
	return c.WaitForTranscript(ctx, id)
}
