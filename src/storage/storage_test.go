package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "procurebot.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	version, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	statuses, err := db.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.Equal(t, goose.StateApplied, s.State)
	}

	// a second run is a no-op
	results, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t).DB()

	latest, err := GetLatestSession(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, latest)

	s := &Session{}
	require.NoError(t, CreateSession(ctx, db, s))
	assert.NotEmpty(t, s.ID)

	conv, err := StartConversation(ctx, db, s, "restock")
	require.NoError(t, err)

	s.PrecheckDone = true
	s.MediaInputID = 3
	require.NoError(t, UpdateSession(ctx, db, s))

	got, err := GetSessionByID(ctx, db, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.CurrentConversationID)
	assert.Equal(t, conv.ID, *got.CurrentConversationID)
	assert.Equal(t, IDList{conv.ID}, got.ConversationIDs)
	assert.True(t, got.PrecheckDone)
	assert.Equal(t, 3, got.MediaInputID)

	gotConv, err := GetConversationByID(ctx, db, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, gotConv)
	assert.Equal(t, "restock", gotConv.Title)
	assert.Equal(t, s.ID, gotConv.SessionID)

	missing, err := GetSessionByID(ctx, db, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTurnRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t).DB()

	s := &Session{}
	require.NoError(t, CreateSession(ctx, db, s))
	conv, err := StartConversation(ctx, db, s, "")
	require.NoError(t, err)

	now := time.Now()
	messages := []struct {
		msg     aisdk.Message
		visible bool
	}{
		{aisdk.Message{Role: aisdk.RoleUser, Content: "we used 3 towels", Parts: []aisdk.ContentPart{
			aisdk.TextPart("we used 3 towels"),
			aisdk.ImagePart("image/png", []byte{0x89, 0x50}),
		}}, true},
		{aisdk.Message{Role: aisdk.RoleAssistant, ToolCalls: []aisdk.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: aisdk.FunctionCall{Name: "update_used", Arguments: json.RawMessage(`{"id":"4","delta":3}`)},
		}}}, true},
		{aisdk.Message{Role: aisdk.RoleTool, ToolCallID: "call_1", Name: "update_used", Content: "ok"}, false},
	}
	for i, m := range messages {
		turn, err := TurnFromMessage("", conv.ID, i, m.msg, m.visible, now)
		require.NoError(t, err)
		require.NoError(t, SaveTurn(ctx, db, turn))
	}

	stored, err := GetTurnsByConversationID(ctx, db, conv.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	for i, turn := range stored {
		msg, err := turn.Message()
		require.NoError(t, err)
		assert.Equal(t, messages[i].msg.Role, msg.Role)
		assert.Equal(t, messages[i].msg.Content, msg.Content)
		assert.Equal(t, messages[i].msg.ToolCallID, msg.ToolCallID)
		assert.Equal(t, messages[i].visible, turn.Visible)
	}

	first, _ := stored[0].Message()
	assert.Len(t, first.Parts, 2)
	assert.True(t, first.HasImages())

	second, _ := stored[1].Message()
	require.Len(t, second.ToolCalls, 1)
	assert.Equal(t, "update_used", second.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"id":"4","delta":3}`, string(second.ToolCalls[0].Function.Arguments))

	// saving again only flips visibility
	hidden := stored[2]
	hidden.Visible = true
	hidden.Content = "changed"
	require.NoError(t, SaveTurn(ctx, db, &hidden))
	stored, err = GetTurnsByConversationID(ctx, db, conv.ID)
	require.NoError(t, err)
	assert.True(t, stored[2].Visible)
	assert.Equal(t, "ok", stored[2].Content)

	require.NoError(t, DeleteTurns(ctx, db, conv.ID))
	stored, err = GetTurnsByConversationID(ctx, db, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestToolExecutionsAndLedgerMutations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t).DB()

	s := &Session{}
	require.NoError(t, CreateSession(ctx, db, s))
	conv, err := StartConversation(ctx, db, s, "")
	require.NoError(t, err)

	require.NoError(t, CreateToolExecution(ctx, db, &ToolExecution{
		ConversationID: conv.ID,
		ToolName:       "send_order_email",
		ToolCallID:     "call_2",
		Input:          `{}`,
		Output:         "Error: confirmation required",
		IsError:        true,
		Gate:           "blocked",
	}))
	execs, err := GetToolExecutions(ctx, db, conv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.True(t, execs[0].IsError)
	assert.Equal(t, "blocked", execs[0].Gate)

	base := time.Now()
	for i, delta := range []float64{2, 5} {
		require.NoError(t, CreateLedgerMutation(ctx, db, &LedgerMutation{
			ConversationID: conv.ID,
			Dataset:        "inventory.csv",
			ProductID:      "4",
			Delta:          delta,
			UsedBefore:     10,
			UsedAfter:      10 + delta,
			Total:          100,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}
	muts, err := GetLedgerMutations(ctx, db, "inventory.csv", 1)
	require.NoError(t, err)
	require.Len(t, muts, 1)
	assert.Equal(t, 5.0, muts[0].Delta)

	all, err := GetLedgerMutations(ctx, db, "inventory.csv", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := GetLedgerMutations(ctx, db, "other.csv", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
