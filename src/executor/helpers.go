package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/session"
	"github.com/elee1766/procurebot/src/storage"
)

// persistTurn stores a turn. Persistence failures are logged and never
// interrupt the conversation.
func (s *Service) persistTurn(ctx context.Context, conversationID string, position int, turn session.Turn) string {
	if s.database == nil || conversationID == "" {
		return turn.ID
	}
	stored, err := storage.TurnFromMessage(turn.ID, conversationID, position, turn.Message, turn.Visible, turn.CreatedAt)
	if err != nil {
		s.logger.Error("failed to encode turn", "error", err)
		return turn.ID
	}
	if err := storage.SaveTurn(ctx, s.database, stored); err != nil {
		s.logger.Error("failed to save turn", "error", err, "role", turn.Message.Role)
	}
	return turn.ID
}

// syncTurns re-saves the turns from position from onwards so visibility
// changes reach the store.
func (s *Service) syncTurns(ctx context.Context, sess *session.Session, conversationID string, from int) {
	turns := sess.Turns()
	for i := from; i < len(turns); i++ {
		s.persistTurn(ctx, conversationID, i, turns[i])
	}
}

// dispatch runs one tool call through the gate and the toolbox and appends
// its result turn.
func (s *Service) dispatch(ctx context.Context, sess *session.Session, conversationID string, call *aisdk.ToolCall, emitter *EventEmitter) *aisdk.Message {
	name := call.Function.Name
	tool, found := s.toolbox.GetTool(name)
	mutating := found && tool.GetEffect() == agent.EffectMutate

	s.logger.Debug("executing tool", "name", name, "id", call.ID, "mutating", mutating)
	emitter.EmitToolCallRequest(*call, mutating)

	start := time.Now()
	var (
		result *aisdk.ToolResponse
		gate   = GateNone
	)
	switch {
	case !found:
		gate = GateUnknown
		result = agent.ErrorResponse(fmt.Errorf("Unknown tool: %s", name))

	case mutating && s.gate != nil:
		d := s.gate.Check(ctx, sess, call)
		switch {
		case !d.Allowed:
			gate = GateBlocked
			result = agent.ErrorResponse(errors.New(d.Message(name)))
			emitter.EmitConfirmationRequired(name, call.ID, d)
		case d.Confirmed < d.Required:
			gate = GateAdvisory
		default:
			gate = GateConfirmed
		}
	}

	if result == nil {
		callCtx := agent.WithCallInfo(ctx, agent.CallInfo{
			SessionID:      sess.ID,
			ConversationID: conversationID,
			ToolCallID:     call.ID,
		})
		var err error
		result, err = s.toolbox.ExecuteTool(callCtx, call)
		if err != nil {
			result = agent.ErrorResponse(err)
		}
	}
	duration := time.Since(start)

	if result.IsError {
		emitter.EmitToolCallError(name, call.ID, result.Text(), duration)
	} else {
		emitter.EmitToolCallResponse(name, call.ID, result, duration, gate)
	}

	msg := aisdk.Message{
		Role:       aisdk.RoleTool,
		Content:    result.Text(),
		Name:       name,
		ToolCallID: call.ID,
	}
	turn := sess.Append(msg, true)
	turnID := s.persistTurn(ctx, conversationID, sess.Len()-1, turn)
	s.recordExecution(ctx, conversationID, turnID, call, result, gate, duration)
	return &msg
}

func (s *Service) recordExecution(ctx context.Context, conversationID, turnID string, call *aisdk.ToolCall, result *aisdk.ToolResponse, gate string, duration time.Duration) {
	if s.database == nil || conversationID == "" {
		return
	}
	exec := &storage.ToolExecution{
		TurnID:         turnID,
		ConversationID: conversationID,
		Provider:       s.provider,
		Model:          s.model.GetModelInfo().ID,
		ToolName:       call.Function.Name,
		ToolCallID:     call.ID,
		Input:          string(call.Function.Arguments),
		Output:         result.Text(),
		IsError:        result.IsError,
		Gate:           gate,
		DurationMs:     duration.Milliseconds(),
	}
	if err := storage.CreateToolExecution(ctx, s.database, exec); err != nil {
		s.logger.Error("failed to save tool execution", "error", err)
	}
}
