// Package confirm implements the confirmation gate: the runtime check that a
// state-mutating tool call was preceded by explicit user approval.
package confirm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/session"
)

// Mode selects how a failed check is handled.
type Mode string

const (
	// ModeEnforce rejects the call with an error result.
	ModeEnforce Mode = "enforce"
	// ModeAdvisory logs the violation and lets the call through.
	ModeAdvisory Mode = "advisory"
)

// Tier is the risk level of a mutating call.
type Tier int

const (
	TierStandard Tier = iota
	TierHigh
)

func (t Tier) String() string {
	if t == TierHigh {
		return "high"
	}
	return "standard"
}

// Required is the number of sequential confirmations the tier demands.
func (t Tier) Required() int {
	if t == TierHigh {
		return 2
	}
	return 1
}

// Risk is the assessment of one tool call.
type Risk struct {
	Tier    Tier
	Reasons []string
}

// RiskAssessor rates a mutating tool call.
type RiskAssessor interface {
	Assess(ctx context.Context, call *aisdk.ToolCall) Risk
}

// History is the view of the conversation the gate needs.
type History interface {
	RecentVisibleUser(n int) []session.Turn
	VisibleAssistantBetween(olderID, newerID string) bool
	ConfirmationUsed(turnID string) bool
	MarkConfirmationUsed(turnIDs ...string)
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed   bool
	Risk      Risk
	Required  int
	Confirmed int

	// Spent is set when the user's confirmation was already used by an
	// earlier mutating call.
	Spent bool
}

// Message renders a rejection as a tool result the model can act on.
func (d Decision) Message(toolName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: confirmation required before calling %s. ", toolName)
	if d.Spent {
		sb.WriteString("The user's confirmation was already used for an earlier action and covers only one call. ")
	}
	if d.Required > 1 {
		sb.WriteString("This is a high-risk action")
		if len(d.Risk.Reasons) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(d.Risk.Reasons, "; "))
		}
		fmt.Fprintf(&sb, " and needs %d separate confirmations from the user; %d received. ", d.Required, d.Confirmed)
	}
	sb.WriteString("Summarize the action, ask the user to confirm, and wait for their reply.")
	return sb.String()
}

// Gate checks mutating tool calls against the conversation.
type Gate struct {
	mode       Mode
	risk       RiskAssessor
	classifier Classifier
	logger     *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithRiskAssessor sets the assessor. Without one every call is standard risk.
func WithRiskAssessor(r RiskAssessor) Option { return func(g *Gate) { g.risk = r } }

// WithClassifier replaces the keyword classifier.
func WithClassifier(c Classifier) Option { return func(g *Gate) { g.classifier = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(g *Gate) { g.logger = l } }

// NewGate creates a gate.
func NewGate(mode Mode, opts ...Option) *Gate {
	g := &Gate{
		mode:       mode,
		classifier: KeywordClassifier{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(g)
	}
	if g.mode == "" {
		g.mode = ModeEnforce
	}
	g.logger = g.logger.With("component", "confirm")
	return g
}

// Mode returns the configured mode.
func (g *Gate) Mode() Mode { return g.mode }

// Check decides whether call may be dispatched. Standard risk needs the last
// visible user turn to be affirmative. High risk needs the last two visible
// user turns to be affirmative with a visible assistant turn between them, so
// the user confirmed twice in separate exchanges. A confirmation authorizes
// one call: turns that satisfied a check are spent and cannot satisfy another.
func (g *Gate) Check(ctx context.Context, h History, call *aisdk.ToolCall) Decision {
	risk := Risk{Tier: TierStandard}
	if g.risk != nil {
		risk = g.risk.Assess(ctx, call)
	}
	d := Decision{Risk: risk, Required: risk.Tier.Required()}

	recent := h.RecentVisibleUser(d.Required)
	var confirming []string
	for i, t := range recent {
		if h.ConfirmationUsed(t.ID) {
			d.Spent = true
			break
		}
		if !g.classifier.IsAffirmative(t.Message.TextContent()) {
			break
		}
		if i > 0 && !h.VisibleAssistantBetween(t.ID, recent[i-1].ID) {
			break
		}
		d.Confirmed++
		confirming = append(confirming, t.ID)
	}
	d.Allowed = d.Confirmed >= d.Required

	if d.Allowed {
		h.MarkConfirmationUsed(confirming...)
		g.logger.Debug("confirmation satisfied", "tool", call.Function.Name, "tier", risk.Tier, "confirmations", d.Confirmed)
		return d
	}

	if g.mode == ModeAdvisory {
		g.logger.Warn("mutating tool called without confirmation",
			"tool", call.Function.Name, "tier", risk.Tier, "required", d.Required, "confirmations", d.Confirmed)
		d.Allowed = true
		return d
	}

	g.logger.Info("mutating tool call rejected",
		"tool", call.Function.Name, "tier", risk.Tier, "required", d.Required, "confirmations", d.Confirmed)
	return d
}
