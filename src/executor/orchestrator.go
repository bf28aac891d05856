package executor

import (
	"context"
	"fmt"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/session"
	"github.com/google/uuid"
)

// RunRequest is one response cycle for one input.
type RunRequest struct {
	Session *session.Session

	// ConversationID enables persistence when the service has a database.
	ConversationID string

	// Input is appended as a user turn before the model is invoked. Nil
	// re-invokes the model on the existing log.
	Input *aisdk.Message

	// Event sink for handling conversation events
	EventSink EventSink
}

// RunResult is the outcome of a run.
type RunResult struct {
	State      State
	Iterations int
	ModelCalls int
	// Final is the text of the last assistant turn.
	Final string
	// Err is the model failure that ended the run, if any. It has already
	// been surfaced as an error event.
	Err error
}

// Run drives the loop for one input until the model answers without tool
// requests, fails, or the iteration ceiling is reached. The batch of the
// response that reaches the ceiling is still dispatched so every request has
// a result; the model is not invoked again.
func (s *Service) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	if req.Session == nil {
		return nil, ErrSessionRequired
	}
	sess := req.Session
	emitter := NewEventEmitter(req.EventSink, req.ConversationID)
	emitter.SetInternal(sess.PrecheckInProgress())

	if req.Input != nil {
		turn := sess.AppendUser(*req.Input)
		s.persistTurn(ctx, req.ConversationID, sess.Len()-1, turn)
		emitter.EmitUserMessage(&turn.Message)
	}

	result := &RunResult{State: StateIdle}
	var pending []aisdk.ToolCall

	for !result.State.Terminal() {
		emitter.SetIteration(result.Iterations)

		switch result.State {
		case StateIdle:
			result.State = StateAwaitingModel

		case StateAwaitingModel:
			result.ModelCalls++
			response, err := s.Step(ctx, sess, req.ConversationID, emitter)
			if err != nil {
				s.logger.Error("model invocation failed", "error", err, "model_calls", result.ModelCalls)
				emitter.EmitError(err, "model")
				result.Err = err
				result.State = StateDone
				continue
			}
			if response.Content != "" {
				result.Final = response.Content
			}
			if len(response.ToolCalls) == 0 {
				result.State = StateDone
				continue
			}
			pending = response.ToolCalls
			result.Iterations++
			result.State = StateDispatchingTools

		case StateDispatchingTools:
			emitter.SetIteration(result.Iterations)
			s.ExecuteToolCalls(ctx, sess, req.ConversationID, pending, emitter)
			pending = nil
			if result.Iterations >= s.maxIterations {
				result.State = StateIterationLimitReached
				s.logger.Warn("iteration ceiling reached", "iterations", result.Iterations)
				emitter.EmitSystemMessage(IterationLimitWarning, "warning")
			} else {
				result.State = StateAwaitingModel
			}
			emitter.EmitIterationComplete(s.maxIterations-result.Iterations, result.State)
		}
	}

	emitter.EmitLoopComplete(result.State, result.Iterations, result.ModelCalls)
	return result, nil
}

// Step invokes the model once with the full history and appends the
// assistant turn. Text is streamed to the emitter as it arrives.
func (s *Service) Step(ctx context.Context, sess *session.Session, conversationID string, emitter *EventEmitter) (*Response, error) {
	req := s.buildRequest(sess)
	model := req.Model

	var (
		stream aisdk.StreamInterface
		err    error
	)
	if s.stream {
		stream, err = s.model.CreateChatCompletionStream(ctx, req)
	} else {
		var resp *aisdk.ChatCompletionResponse
		resp, err = s.model.CreateChatCompletion(ctx, req)
		if err == nil {
			stream = aisdk.StreamFromResponse(resp)
		}
	}
	if err != nil {
		return nil, err
	}

	emitter.EmitAssistantStreamStart(model)
	aggregator := aisdk.NewStreamAggregator()
	err = aisdk.StreamToCallback(stream, func(chunk *aisdk.StreamChunk) error {
		if delta := aggregator.AddChunk(chunk); delta != "" {
			emitter.EmitAssistantStreamChunk(delta)
		}
		return ctx.Err()
	})
	emitter.EmitAssistantStreamEnd()
	if err != nil {
		return nil, fmt.Errorf("stream failed: %w", err)
	}

	response := &Response{
		Content:   aggregator.Content.String(),
		ToolCalls: aggregator.ToolCalls(),
		Usage:     aggregator.Usage,
	}
	if response.Content == "" && len(response.ToolCalls) == 0 {
		s.logger.Warn("model returned an empty response", "finish_reason", aggregator.FinishReason)
		return response, nil
	}

	for i := range response.ToolCalls {
		if response.ToolCalls[i].ID == "" {
			response.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
		if response.ToolCalls[i].Type == "" {
			response.ToolCalls[i].Type = "function"
		}
	}

	msg := aisdk.Message{
		Role:      aisdk.RoleAssistant,
		Content:   response.Content,
		ToolCalls: response.ToolCalls,
	}
	turn := sess.Append(msg, true)
	s.persistTurn(ctx, conversationID, sess.Len()-1, turn)
	emitter.EmitAssistantMessage(&msg, model, response.Usage)
	return response, nil
}

// ExecuteToolCalls dispatches the calls sequentially in emission order and
// appends one tool-result turn per call. It never fails: every problem
// becomes an error result the model can read.
func (s *Service) ExecuteToolCalls(ctx context.Context, sess *session.Session, conversationID string, calls []aisdk.ToolCall, emitter *EventEmitter) []*aisdk.Message {
	results := make([]*aisdk.Message, 0, len(calls))
	for i := range calls {
		results = append(results, s.dispatch(ctx, sess, conversationID, &calls[i], emitter))
	}
	return results
}
