package procureagent

import (
	"fmt"

	"github.com/elee1766/procurebot/src/agent"
)

// AllClear is the precheck answer when nothing is low.
const AllClear = "All stock levels are fine."

// precheckTemplate is the hidden prompt run once per session.
const precheckTemplate = `System check: read the inventory dataset and list every item whose storage is below %s, with product ID, name, and current storage level. Suggest a reorder quantity for each based on the contracts dataset, but do not place any order. If no item is low, answer only "%s"`

// PrecheckPrompt renders the startup stock check for a low-stock threshold.
func PrecheckPrompt(lowStock float64) string {
	if lowStock == 0 {
		lowStock = 0.05
	}
	return fmt.Sprintf(precheckTemplate, pct(lowStock), AllClear)
}

// GetDefaultSystemPrompt returns the rendered system prompt with default values
func GetDefaultSystemPrompt(toolbox *agent.DefaultToolbox) string {
	return GenerateSystemPrompt(toolbox, PromptOptions{})
}
