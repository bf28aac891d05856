package tool_calculate

import (
	"context"
	"errors"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/calc"
	"github.com/elee1766/procurebot/src/procureagent/toolsutil"
)

// Tool name constant
const Name = "calculate"

const calculatePrompt = `Evaluates math expressions (e.g., '45 * 12'). Only digits, + - * / ( ) . and spaces are accepted. Use ** for powers and // for floor division.`

// CalculateInput represents the input for the calculator
type CalculateInput struct {
	Expression string `json:"expression" required:"true" description:"Arithmetic expression to evaluate" validate:"required"`
}

func handleCalculate(ctx context.Context, input CalculateInput) (string, error) {
	logger := toolsutil.GetLogger()

	result, err := calc.Evaluate(input.Expression)
	if err != nil {
		logger.Debug("calculation failed", "expression", input.Expression, "error", err)
		te := toolsutil.NewToolError(toolsutil.InvalidInput, err.Error(), err)
		if errors.Is(err, calc.ErrInvalidCharacters) {
			te.With("allowed", calc.Allowed)
		}
		return "", te
	}
	return result, nil
}

// Tool returns the calculate tool definition
func Tool() (agent.Tool, error) {
	return agent.NewGenericTool(Name, calculatePrompt, agent.EffectRead, handleCalculate)
}
