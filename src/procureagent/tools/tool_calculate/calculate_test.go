package tool_calculate

import (
	"context"
	"testing"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateTool(t *testing.T) {
	tool, err := Tool()
	require.NoError(t, err)
	assert.Equal(t, Name, tool.GetName())

	tests := []struct {
		name      string
		args      string
		expected  string
		expectErr bool
	}{
		{name: "multiplication", args: `{"expression":"45 * 12"}`, expected: "540"},
		{name: "true division", args: `{"expression":"6/2"}`, expected: "3.0"},
		{name: "precedence", args: `{"expression":"2 + 3 * 4"}`, expected: "14"},
		{name: "disallowed characters", args: `{"expression":"45 * ; DROP"}`, expected: "Error: Invalid characters", expectErr: true},
		{name: "division by zero", args: `{"expression":"1/0"}`, expectErr: true},
		{name: "missing expression", args: `{}`, expected: "Error: invalid input: required field 'expression' is missing", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := &aisdk.ToolCall{ID: "call_1", Type: "function"}
			call.Function.Name = Name
			call.Function.Arguments = []byte(tt.args)

			resp, err := tool.Execute(context.Background(), call)
			require.NoError(t, err)
			assert.Equal(t, tt.expectErr, resp.IsError)
			if tt.expected != "" {
				assert.Equal(t, tt.expected, resp.Text())
			}
		})
	}
}
