package procureagent

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/elee1766/procurebot/src/agent"
	jsonschema "github.com/swaggest/jsonschema-go"
)

// Static prompt templates
const (
	mainPromptTemplate = `You are an expert Procurement Assistant. Your role is to identify materials, verify contract details, and manage orders for low-value consumables using specific tools. You are professional, efficient, and precise.`

	workflowSection = `<workflow_steps>

1. **Input Analysis**
   - If the user provides text: Identify the item name and requested quantity.
   - If the user provides an image: Analyze the image in high detail. Describe visual features, brand markings, or specifications to identify the item.
   - If the quantity is missing, ask the user to specify it before proceeding.

2. **Database Lookup**
   - Use the ` + "`read_ledger`" + ` tool on the contracts dataset to search for the identified item.
   - Retrieve the: 'unit_price_eur', 'supplier_id', 'quantity' (total contract limit), and 'used'.
   - Use the inventory dataset to check how full the destination storage is.

3. **Availability & Logic Check**
   - STRICTLY check availability first: calculate (quantity - used).
   - Compare this result against the user's requested quantity.

   **Branch A: Insufficient Quantity**
   - If the requested amount exceeds the remaining contract limit:
   - Do NOT offer to order via the contract.
   - Offer to use the ` + "`call_local_store`" + ` tool to arrange the missing items and ask for confirmation.
   - Once confirmed, call the local store and inform the user of the outcome.

   **Branch B: Sufficient Quantity**
   - Use the ` + "`calculate`" + ` tool to determine the Total Price (unit_price_eur * requested quantity).
   - Present the item found, the unit price, and the total price to the user.
   - Ask for explicit confirmation to proceed.

4. **Execution (Only after User Confirmation)**
   - Once the user confirms the order:
   - A) Use ` + "`send_order_email`" + ` (when available) to send the order to the supplier.
   - B) Use the ` + "`update_used`" + ` tool to add the ordered quantity to the 'used' column.
   - C) Confirm to the user that the order has been placed and the contract record updated.

</workflow_steps>`

	confirmationSection = `<confirmation_policy>
- ` + "`update_used`" + `, ` + "`call_local_store`" + `, and ` + "`send_order_email`" + ` change the ledger, contact a third party, or commit spend. Never call them unless the user's latest message explicitly confirms the action you proposed.
- ` + "`calculate`" + ` and ` + "`read_ledger`" + ` never need confirmation.
- High risk: if the order would leave %s or less of the contract quantity, or the destination storage is already above %s full, ask for confirmation twice. State the risk, get a first confirmation, then ask again and wait for a second confirmation before calling the tool.
- If a tool result says confirmation is required, ask the user for it. Do not retry the call in the same turn.
</confirmation_policy>`

	guidelinesSection = `<guidelines>
- Always use the ` + "`calculate`" + ` tool for math; do not calculate mentally.
- Never place an order or update the ledger without explicit user confirmation.
- If an item is not found in the ledger at all, inform the user and ask for the correct item name or product ID.
- Tool errors start with "Error:". Explain them to the user and propose a corrected action instead of repeating the same call.
- Keep answers short. Use Markdown tables for lists of items.
</guidelines>`
)

// PromptOptions carries the site facts interpolated into the prompt.
type PromptOptions struct {
	SiteAddress string
	// LowCapacity is the remaining contract fraction treated as high risk.
	LowCapacity float64
	// HighStorage is the storage fraction treated as high risk.
	HighStorage float64
	// LowStock is the storage fraction below which an item needs reordering.
	LowStock float64
	Now      func() time.Time
}

func (o PromptOptions) withDefaults() PromptOptions {
	if o.LowCapacity == 0 {
		o.LowCapacity = 0.10
	}
	if o.HighStorage == 0 {
		o.HighStorage = 0.90
	}
	if o.LowStock == 0 {
		o.LowStock = 0.05
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func pct(f float64) string {
	return strconv.FormatFloat(f*100, 'f', -1, 64) + "%"
}

// getEnvironmentInfo generates dynamic environment information
func getEnvironmentInfo(opts PromptOptions) string {
	site := opts.SiteAddress
	if site == "" {
		site = "unknown"
	}
	return fmt.Sprintf(`Here is useful information about the site you are ordering for:
<env>
Delivery address: %s
Low stock threshold: %s
High storage threshold: %s
Today's date: %s
</env>`, site, pct(opts.LowStock), pct(opts.HighStorage), opts.Now().Format("2006-01-02"))
}

func schemaType(t *jsonschema.Type) string {
	if t == nil {
		return "object"
	}
	if t.SimpleTypes != nil {
		return string(*t.SimpleTypes)
	}
	if len(t.SliceOfSimpleTypeValues) > 0 {
		return string(t.SliceOfSimpleTypeValues[0])
	}
	return "object"
}

func formatEnum(values []any) string {
	enumStrs := make([]string, 0, len(values))
	for _, e := range values {
		enumStrs = append(enumStrs, fmt.Sprintf(`"%v"`, e))
	}
	return fmt.Sprintf("(enum: %s)", strings.Join(enumStrs, " | "))
}

// formatSchemaForPrompt formats a JSON schema for display in the prompt
func formatSchemaForPrompt(schema *jsonschema.Schema, indentLevel int) string {
	if schema == nil {
		return "unknown"
	}

	indent := strings.Repeat("  ", indentLevel)
	parts := []string{}

	if schema.Description != nil && *schema.Description != "" {
		parts = append(parts, fmt.Sprintf("%s# %s", indent, *schema.Description))
	}

	detailParts := []string{}
	if len(schema.Enum) > 0 {
		detailParts = append(detailParts, formatEnum(schema.Enum))
	}
	// Required fields only make sense for objects
	if schema.Items == nil && len(schema.Properties) > 0 && len(schema.Required) > 0 {
		detailParts = append(detailParts, fmt.Sprintf("(required: %s)", strings.Join(schema.Required, ", ")))
	}

	if len(detailParts) > 0 {
		parts = append(parts, fmt.Sprintf("%s%s %s", indent, schemaType(schema.Type), strings.Join(detailParts, " ")))
	} else {
		parts = append(parts, fmt.Sprintf("%s%s", indent, schemaType(schema.Type)))
	}

	propNames := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		propNames = append(propNames, name)
	}
	// Sort property names for consistent output
	slices.Sort(propNames)

	for _, propName := range propNames {
		propSchema := schema.Properties[propName].TypeObject
		if propSchema == nil {
			continue
		}
		propType := schemaType(propSchema.Type)
		if len(propSchema.Enum) > 0 {
			propType += " " + formatEnum(propSchema.Enum)
		}
		line := fmt.Sprintf("%s  %s: %s", indent, propName, propType)
		if propSchema.Description != nil && *propSchema.Description != "" {
			line += fmt.Sprintf(" # %s", *propSchema.Description)
		}
		parts = append(parts, line)
	}

	if schema.Items != nil && schema.Items.SchemaOrBool != nil && schema.Items.SchemaOrBool.TypeObject != nil {
		itemSchemaString := formatSchemaForPrompt(schema.Items.SchemaOrBool.TypeObject, indentLevel+1)
		parts = append(parts, fmt.Sprintf("%s  items: %s", indent, strings.TrimSpace(itemSchemaString)))
	}

	return strings.Join(parts, "\n")
}

// formatToolsForPrompt formats tools for display in the prompt
func formatToolsForPrompt(toolbox *agent.DefaultToolbox) string {
	if toolbox == nil {
		return "No tools available."
	}

	tools := toolbox.Tools()
	if len(tools) == 0 {
		return "No tools available."
	}

	toolStrings := []string{}
	for _, tool := range tools {
		parts := []string{
			fmt.Sprintf("Tool: %s", tool.GetName()),
			fmt.Sprintf("Description: %s", tool.GetDescription()),
		}
		if tool.GetEffect() == agent.EffectMutate {
			parts = append(parts, "Requires confirmation: yes")
		}
		parts = append(parts, "Input Schema:")

		if tool.GetParameters() != nil {
			parts = append(parts, formatSchemaForPrompt(tool.GetParameters(), 1))
		} else {
			parts = append(parts, "  # No schema defined")
		}

		toolStrings = append(toolStrings, strings.Join(parts, "\n"))
	}

	return fmt.Sprintf("You have access to the following tools:\n\n%s", strings.Join(toolStrings, "\n\n---\n\n"))
}

// GenerateSystemPrompt assembles all sections into the final system prompt
func GenerateSystemPrompt(toolbox *agent.DefaultToolbox, opts PromptOptions) string {
	opts = opts.withDefaults()
	sections := []string{
		mainPromptTemplate,
		workflowSection,
		fmt.Sprintf(confirmationSection, pct(opts.LowCapacity), pct(opts.HighStorage)),
		guidelinesSection,
		getEnvironmentInfo(opts),
		formatToolsForPrompt(toolbox),
	}
	return strings.Join(sections, "\n\n")
}
