package executor

import (
	"context"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/session"
)

// PrecheckRequest runs the hidden startup check.
type PrecheckRequest struct {
	Session        *session.Session
	ConversationID string
	Prompt         string
	EventSink      EventSink
}

// RunPrecheck runs the prompt as a hidden turn once per session. Every turn
// it appends is internal; afterwards the final assistant answer is revealed
// so the user sees the alert. It returns ErrPrecheckDone if the session
// already ran it.
func (s *Service) RunPrecheck(ctx context.Context, req *PrecheckRequest) (*RunResult, error) {
	if req.Session == nil {
		return nil, ErrSessionRequired
	}
	sess := req.Session
	if !sess.BeginPrecheck() {
		return nil, ErrPrecheckDone
	}
	from := sess.Len()

	s.logger.Debug("running precheck", "session_id", sess.ID)
	result, err := s.Run(ctx, &RunRequest{
		Session:        sess,
		ConversationID: req.ConversationID,
		Input:          &aisdk.Message{Role: aisdk.RoleUser, Content: req.Prompt},
		EventSink:      req.EventSink,
	})
	reveal := err == nil && result.Err == nil
	sess.EndPrecheck(reveal)
	s.syncTurns(ctx, sess, req.ConversationID, from)
	if err != nil {
		return nil, err
	}

	if reveal {
		turns := sess.Turns()
		for i := len(turns) - 1; i >= from; i-- {
			if turns[i].Visible {
				NewEventEmitter(req.EventSink, req.ConversationID).EmitPrecheckAlert(turns[i].Message.TextContent())
				break
			}
		}
	}
	return result, nil
}
