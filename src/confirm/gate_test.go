package confirm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/session"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"yes", true},
		{"Yes, please.", true},
		{"ok go ahead", true},
		{"Confirmed!", true},
		{"ja, bitte bestellen", true},
		{"Passt so", true},
		{"place the order", true},
		{"no", false},
		{"yes, but not now", false},
		{"nein", false},
		{"wait", false},
		{"can you check the price first?", false},
		{"yes?", false},
		{"I need 50 gloves", false},
		{"", false},
		{"don't order it", false},
	}
	c := KeywordClassifier{}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsAffirmative(tt.text))
		})
	}
}

type fixedRisk Risk

func (f fixedRisk) Assess(context.Context, *aisdk.ToolCall) Risk { return Risk(f) }

func user(s *session.Session, text string) { s.AppendUser(aisdk.Message{Content: text}) }
func assistant(s *session.Session, text string) {
	s.Append(aisdk.Message{Role: aisdk.RoleAssistant, Content: text}, true)
}

var updateCall = &aisdk.ToolCall{ID: "c1", Function: aisdk.FunctionCall{Name: "update_used", Arguments: json.RawMessage(`{"product_id":"C001","used_quantity":5}`)}}

func TestGate_Standard(t *testing.T) {
	tests := []struct {
		name  string
		build func(s *session.Session)
		want  bool
	}{
		{
			name: "affirmed",
			build: func(s *session.Session) {
				user(s, "order 5 gloves")
				assistant(s, "That is 62.50 EUR. Shall I order?")
				user(s, "yes")
			},
			want: true,
		},
		{
			name: "no confirmation yet",
			build: func(s *session.Session) {
				user(s, "order 5 gloves")
			},
			want: false,
		},
		{
			name: "declined",
			build: func(s *session.Session) {
				user(s, "order 5 gloves")
				assistant(s, "Confirm?")
				user(s, "no, cancel")
			},
			want: false,
		},
		{
			name:  "empty history",
			build: func(s *session.Session) {},
			want:  false,
		},
		{
			name: "internal turns do not count",
			build: func(s *session.Session) {
				user(s, "order 5 gloves")
				require.True(t, s.BeginPrecheck())
				s.Append(aisdk.Message{Role: aisdk.RoleUser, Content: "yes"}, true)
				s.EndPrecheck(false)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session.New()
			tt.build(s)
			d := NewGate(ModeEnforce).Check(context.Background(), s, updateCall)
			assert.Equal(t, tt.want, d.Allowed)
			assert.Equal(t, 1, d.Required)
		})
	}
}

func TestGate_HighRiskNeedsTwoConfirmations(t *testing.T) {
	gate := NewGate(ModeEnforce, WithRiskAssessor(fixedRisk{Tier: TierHigh, Reasons: []string{"storage at 95%"}}))
	ctx := context.Background()

	s := session.New()
	user(s, "order 5 goggles")
	assistant(s, "Storage is at 95%. Are you sure?")
	user(s, "yes")

	d := gate.Check(ctx, s, updateCall)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.Required)
	assert.Equal(t, 1, d.Confirmed)
	assert.Contains(t, d.Message("update_used"), "needs 2 separate confirmations")
	assert.Contains(t, d.Message("update_used"), "storage at 95%")

	assistant(s, "Please confirm once more: order 5 goggles for 44.50 EUR?")
	user(s, "yes, confirmed")

	d = gate.Check(ctx, s, updateCall)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Confirmed)
}

func TestGate_HighRiskBackToBackConfirmationsCountOnce(t *testing.T) {
	gate := NewGate(ModeEnforce, WithRiskAssessor(fixedRisk{Tier: TierHigh}))
	s := session.New()
	assistant(s, "Are you sure?")
	user(s, "yes")
	user(s, "yes")

	d := gate.Check(context.Background(), s, updateCall)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.Confirmed)
}

func TestGate_ConfirmationCoversOneCall(t *testing.T) {
	gate := NewGate(ModeEnforce)
	ctx := context.Background()

	s := session.New()
	user(s, "order 5 gloves")
	assistant(s, "That is 62.50 EUR. Shall I order?")
	user(s, "yes")

	d := gate.Check(ctx, s, updateCall)
	require.True(t, d.Allowed)
	assert.False(t, d.Spent)

	d = gate.Check(ctx, s, updateCall)
	assert.False(t, d.Allowed)
	assert.True(t, d.Spent)
	assert.Equal(t, 0, d.Confirmed)
	assert.Contains(t, d.Message("update_used"), "already used for an earlier action")

	assistant(s, "Record another 5?")
	user(s, "yes")
	d = gate.Check(ctx, s, updateCall)
	assert.True(t, d.Allowed)
}

func TestGate_HighRiskSpentConfirmation(t *testing.T) {
	ctx := context.Background()
	s := session.New()
	user(s, "order 5 goggles")
	assistant(s, "Shall I order?")
	user(s, "yes")
	require.True(t, NewGate(ModeEnforce).Check(ctx, s, updateCall).Allowed)

	assistant(s, "Storage is at 95%. Order 5 more anyway?")
	user(s, "yes")

	gate := NewGate(ModeEnforce, WithRiskAssessor(fixedRisk{Tier: TierHigh}))
	d := gate.Check(ctx, s, updateCall)
	assert.False(t, d.Allowed)
	assert.True(t, d.Spent)
	assert.Equal(t, 1, d.Confirmed)
}

func TestGate_RejectedCheckDoesNotSpend(t *testing.T) {
	s := session.New()
	user(s, "yes")
	turn, ok := s.LastVisibleUser()
	require.True(t, ok)

	d := NewGate(ModeEnforce, WithRiskAssessor(fixedRisk{Tier: TierHigh})).Check(context.Background(), s, updateCall)
	assert.False(t, d.Allowed)
	assert.False(t, s.ConfirmationUsed(turn.ID))
}

func TestGate_Advisory(t *testing.T) {
	s := session.New()
	user(s, "order 5 gloves")
	d := NewGate(ModeAdvisory).Check(context.Background(), s, updateCall)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Confirmed)
}

func TestDecision_Message(t *testing.T) {
	d := Decision{Required: 1}
	msg := d.Message("call_local_store")
	assert.Contains(t, msg, "Error: confirmation required before calling call_local_store.")
	assert.NotContains(t, msg, "high-risk")
}

func TestLedgerRisk(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/c.csv", []byte(`product_id,product_name,quantity,used,unit_price_eur,supplier_id
C001,Gloves,100,20,12.50,S01
C002,Goggles,100,0,8.90,S02
C003,Ties,100,0,0.05,S01
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/i.csv", []byte(`product_id,storage
C001,0.30
C002,0.95
C003,0.40
`), 0o644))
	store := ledger.NewStore(fs, ledger.Config{ContractsPath: "/c.csv", InventoryPath: "/i.csv"}, nil)
	r := &LedgerRisk{Ledger: store, LowCapacity: 0.10, HighStorage: 0.90}

	tests := []struct {
		name string
		args string
		want Tier
	}{
		{"plenty of room", `{"product_id":"C001","used_quantity":5}`, TierStandard},
		{"drains contract", `{"product_id":"C001","used_quantity":75}`, TierHigh},
		{"storage nearly full", `{"product_id":"C002","quantity":1}`, TierHigh},
		{"quantity far beyond the contract", `{"product_id":"C001","used_quantity":9223372036854775807}`, TierHigh},
		{"order larger than remaining", `{"product_id":"C003","quantity":500}`, TierHigh},
		{"unknown product", `{"product_id":"C999","used_quantity":1}`, TierStandard},
		{"no product id", `{"item_name":"tape","quantity":3}`, TierStandard},
		{"string encoded args", `"{\"product_id\":\"C003\",\"used_quantity\":95}"`, TierHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := &aisdk.ToolCall{Function: aisdk.FunctionCall{Name: "update_used", Arguments: json.RawMessage(tt.args)}}
			risk := r.Assess(context.Background(), call)
			assert.Equal(t, tt.want, risk.Tier)
			if tt.want == TierHigh {
				assert.NotEmpty(t, risk.Reasons)
			}
		})
	}
}
