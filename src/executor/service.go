// Package executor runs the tool-orchestration loop: it invokes the model
// with the conversation, dispatches the requested tools through the
// confirmation gate, appends the results, and repeats up to the iteration
// ceiling.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/confirm"
	"github.com/elee1766/procurebot/src/session"
	"github.com/elee1766/procurebot/src/storage"
)

// DefaultMaxIterations is the iteration ceiling of one run.
const DefaultMaxIterations = 5

// Service handles prompt execution with all necessary dependencies
type Service struct {
	database      *sql.DB
	model         aisdk.ModelClient
	toolbox       *agent.DefaultToolbox
	gate          *confirm.Gate
	logger        *slog.Logger
	systemPrompt  string
	maxIterations int
	maxTokens     *int
	temperature   *float64
	stream        bool
	provider      string
}

// ServiceConfig holds configuration for creating a new Service
type ServiceConfig struct {
	// Database enables persistence of turns and tool executions. Optional.
	Database     *sql.DB
	Model        aisdk.ModelClient
	Toolbox      *agent.DefaultToolbox
	Gate         *confirm.Gate
	SystemPrompt string
	// MaxIterations defaults to DefaultMaxIterations.
	MaxIterations int
	MaxTokens     *int
	Temperature   *float64
	// Stream selects the streaming model call.
	Stream bool
	// Provider is recorded with tool executions.
	Provider string
	Logger   *slog.Logger
}

// NewService creates a new prompt service
func NewService(config ServiceConfig) (*Service, error) {
	if config.Model == nil {
		return nil, ErrModelClientRequired
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultMaxIterations
	}
	if config.Toolbox == nil {
		config.Toolbox = agent.NewToolbox[agent.Tool]()
	}

	return &Service{
		database:      config.Database,
		model:         config.Model,
		toolbox:       config.Toolbox,
		gate:          config.Gate,
		logger:        config.Logger.With("component", "executor"),
		systemPrompt:  config.SystemPrompt,
		maxIterations: config.MaxIterations,
		maxTokens:     config.MaxTokens,
		temperature:   config.Temperature,
		stream:        config.Stream,
		provider:      config.Provider,
	}, nil
}

// MaxIterations returns the iteration ceiling.
func (s *Service) MaxIterations() int { return s.maxIterations }

// Toolbox returns the tools offered to the model.
func (s *Service) Toolbox() *agent.DefaultToolbox { return s.toolbox }

// GetOrCreateSession retrieves or creates a session based on provided parameters
func (s *Service) GetOrCreateSession(ctx context.Context, sessionID string, resume bool) (*storage.Session, error) {
	if s.database == nil {
		return nil, ErrDatabaseRequired
	}
	if sessionID != "" {
		stored, err := storage.GetSessionByID(ctx, s.database, sessionID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return stored, nil
	}

	if resume {
		stored, err := storage.GetLatestSession(ctx, s.database)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			return stored, nil
		}
		// No sessions exist, create new one
	}

	stored := &storage.Session{}
	if err := storage.CreateSession(ctx, s.database, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// GetOrCreateConversation retrieves or creates the current conversation of the session
func (s *Service) GetOrCreateConversation(ctx context.Context, stored *storage.Session) (*storage.Conversation, error) {
	if stored.CurrentConversationID != nil {
		conversation, err := storage.GetConversationByID(ctx, s.database, *stored.CurrentConversationID)
		if err != nil {
			return nil, err
		}
		if conversation != nil {
			return conversation, nil
		}
	}
	return storage.StartConversation(ctx, s.database, stored, "Procurement chat")
}

// RestoreSession rebuilds the conversation state, internal turns included,
// from the stored conversation.
func (s *Service) RestoreSession(ctx context.Context, stored *storage.Session, conversation *storage.Conversation) (*session.Session, error) {
	turns, err := storage.GetTurnsByConversationID(ctx, s.database, conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	restored := make([]session.Turn, 0, len(turns))
	for i := range turns {
		msg, err := turns[i].Message()
		if err != nil {
			return nil, err
		}
		restored = append(restored, session.Turn{
			ID:        turns[i].ID,
			Message:   msg,
			Visible:   turns[i].Visible,
			CreatedAt: turns[i].CreatedAt,
		})
	}
	sess := session.Restore(stored.ID, restored, stored.PrecheckDone)
	for sess.MediaInputID() < stored.MediaInputID {
		sess.NextMediaInput()
	}
	s.logger.Debug("restored session", "session_id", stored.ID, "conversation_id", conversation.ID, "turns", len(restored))
	return sess, nil
}

// SaveSessionFlags writes the session flags back to the store.
func (s *Service) SaveSessionFlags(ctx context.Context, stored *storage.Session, sess *session.Session) error {
	if s.database == nil {
		return nil
	}
	stored.PrecheckDone = sess.PrecheckDone()
	stored.MediaInputID = sess.MediaInputID()
	return storage.UpdateSession(ctx, s.database, stored)
}

// ClearSession truncates the conversation state and starts a new stored
// conversation. The old turns stay in the store for auditing.
func (s *Service) ClearSession(ctx context.Context, stored *storage.Session, sess *session.Session) (*storage.Conversation, error) {
	sess.Clear()
	if s.database == nil {
		return nil, nil
	}
	conv, err := storage.StartConversation(ctx, s.database, stored, "Procurement chat")
	if err != nil {
		return nil, err
	}
	if err := s.SaveSessionFlags(ctx, stored, sess); err != nil {
		return nil, err
	}
	return conv, nil
}
