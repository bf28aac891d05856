package session

import (
	"testing"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roles(turns []Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Role() + ":" + t.Message.TextContent()
	}
	return out
}

func TestSession_PrecheckTurnsAreInternal(t *testing.T) {
	s := New()
	require.True(t, s.BeginPrecheck())
	assert.False(t, s.BeginPrecheck(), "precheck cannot start twice")

	s.Append(aisdk.Message{Role: aisdk.RoleUser, Content: "check stock"}, true)
	s.Append(aisdk.Message{Role: aisdk.RoleAssistant, ToolCalls: []aisdk.ToolCall{{ID: "1"}}}, true)
	s.Append(aisdk.Message{Role: aisdk.RoleTool, ToolCallID: "1", Content: "inventory..."}, true)
	s.Append(aisdk.Message{Role: aisdk.RoleAssistant, Content: "Gloves are low."}, true)
	assert.Empty(t, s.VisibleTurns())

	s.EndPrecheck(true)
	assert.True(t, s.PrecheckDone())
	assert.False(t, s.PrecheckInProgress())
	assert.False(t, s.BeginPrecheck())

	s.AppendUser(aisdk.Message{Content: "order gloves"})

	want := []string{"assistant:Gloves are low.", "user:order gloves"}
	if diff := cmp.Diff(want, roles(s.VisibleTurns())); diff != "" {
		t.Errorf("visible turns mismatch (-want +got):\n%s", diff)
	}

	history := s.ModelHistory()
	require.Len(t, history, 5, "internal turns still reach the model")
	assert.Equal(t, "check stock", history[0].Content)
	assert.Equal(t, aisdk.RoleTool, history[2].Role)
}

func TestSession_EndPrecheckWithoutReveal(t *testing.T) {
	s := New()
	require.True(t, s.BeginPrecheck())
	s.Append(aisdk.Message{Role: aisdk.RoleAssistant, Content: "All fine."}, true)
	s.EndPrecheck(false)
	assert.Empty(t, s.VisibleTurns())
}

func TestSession_RecentVisibleUser(t *testing.T) {
	s := New()
	u1 := s.AppendUser(aisdk.Message{Content: "order 5 gloves"})
	s.Append(aisdk.Message{Role: aisdk.RoleAssistant, Content: "That is 62.5 EUR. Confirm?"}, true)
	u2 := s.AppendUser(aisdk.Message{Content: "yes"})
	s.Append(aisdk.Message{Role: aisdk.RoleTool, ToolCallID: "x", Content: "ok"}, true)

	last, ok := s.LastVisibleUser()
	require.True(t, ok)
	assert.Equal(t, u2.ID, last.ID)

	recent := s.RecentVisibleUser(2)
	require.Len(t, recent, 2)
	assert.Equal(t, u2.ID, recent[0].ID)
	assert.Equal(t, u1.ID, recent[1].ID)

	assert.True(t, s.VisibleAssistantBetween(u1.ID, u2.ID))
	assert.False(t, s.VisibleAssistantBetween(u2.ID, u1.ID))
}

func TestSession_Clear(t *testing.T) {
	s := New()
	require.True(t, s.BeginPrecheck())
	s.EndPrecheck(false)
	s.AppendUser(aisdk.Message{Content: "hi"})
	id, fresh := s.AcceptMedia("abc")
	require.True(t, fresh)

	s.Clear()
	assert.Zero(t, s.Len())
	assert.False(t, s.PrecheckDone())
	assert.Greater(t, s.MediaInputID(), id, "media id keeps increasing across clears")

	_, fresh = s.AcceptMedia("abc")
	assert.True(t, fresh, "the same recording is new again after a clear")
}

func TestSession_ConfirmationUsed(t *testing.T) {
	s := New()
	yes := s.AppendUser(aisdk.Message{Content: "yes"})
	assert.False(t, s.ConfirmationUsed(yes.ID))

	s.MarkConfirmationUsed(yes.ID)
	assert.True(t, s.ConfirmationUsed(yes.ID))

	later := s.AppendUser(aisdk.Message{Content: "yes"})
	assert.False(t, s.ConfirmationUsed(later.ID))

	s.Clear()
	assert.False(t, s.ConfirmationUsed(yes.ID))
}

func TestSession_RestoreSpendsEarlierConfirmations(t *testing.T) {
	s := New()
	yes := s.AppendUser(aisdk.Message{Content: "yes"})
	reply := s.Append(aisdk.Message{Role: aisdk.RoleAssistant, Content: "Recorded."}, true)

	restored := Restore(s.ID, s.Turns(), false)
	assert.True(t, restored.ConfirmationUsed(yes.ID))
	assert.False(t, restored.ConfirmationUsed(reply.ID))

	next := restored.AppendUser(aisdk.Message{Content: "yes"})
	assert.False(t, restored.ConfirmationUsed(next.ID))
}

func TestSession_AcceptMedia(t *testing.T) {
	s := New()
	id1, fresh := s.AcceptMedia("digest-1")
	require.True(t, fresh)
	assert.Equal(t, 1, id1)

	id, fresh := s.AcceptMedia("digest-1")
	assert.False(t, fresh)
	assert.Equal(t, id1, id)

	id2, fresh := s.AcceptMedia("digest-2")
	assert.True(t, fresh)
	assert.Equal(t, 2, id2)
	assert.Equal(t, 3, s.NextMediaInput())
}

func TestSession_TurnsAreCopies(t *testing.T) {
	s := New()
	s.AppendUser(aisdk.Message{Content: "a"})
	turns := s.Turns()
	turns[0].Message.Content = "mutated"
	assert.Equal(t, "a", s.Turns()[0].Message.Content)

	restored := Restore("sess-1", s.Turns(), true)
	assert.Equal(t, "sess-1", restored.ID)
	assert.True(t, restored.PrecheckDone())
	assert.Equal(t, 1, restored.Len())
}
