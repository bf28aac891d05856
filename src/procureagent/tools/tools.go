package tools

// This file provides barrel-style re-exports for all tools, making them accessible
// from the main tools package.

import (
	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/ledger"
	tool_calculate "github.com/elee1766/procurebot/src/procureagent/tools/tool_calculate"
	tool_calllocalstore "github.com/elee1766/procurebot/src/procureagent/tools/tool_calllocalstore"
	tool_readledger "github.com/elee1766/procurebot/src/procureagent/tools/tool_readledger"
	tool_sendorderemail "github.com/elee1766/procurebot/src/procureagent/tools/tool_sendorderemail"
	tool_updateused "github.com/elee1766/procurebot/src/procureagent/tools/tool_updateused"
)

// Tool name constants - re-exported from individual packages
const (
	CalculateName      = tool_calculate.Name
	ReadLedgerName     = tool_readledger.Name
	ReadCSVName        = tool_readledger.LegacyName
	UpdateUsedName     = tool_updateused.Name
	CallLocalStoreName = tool_calllocalstore.Name
	SendOrderEmailName = tool_sendorderemail.Name
)

type (
	UpdateUsedOptions     = tool_updateused.Options
	CallLocalStoreOptions = tool_calllocalstore.Options
	SendOrderEmailOptions = tool_sendorderemail.Options
)

func CalculateTool() (agent.Tool, error)                    { return tool_calculate.Tool() }
func ReadLedgerTool(store *ledger.Store) (agent.Tool, error) { return tool_readledger.Tool(store) }
func ReadCSVTool(store *ledger.Store) (agent.Tool, error) {
	return tool_readledger.ToolNamed(tool_readledger.LegacyName, store)
}
func UpdateUsedTool(store *ledger.Store, opts UpdateUsedOptions) (agent.Tool, error) {
	return tool_updateused.Tool(store, opts)
}
func CallLocalStoreTool(opts CallLocalStoreOptions) (agent.Tool, error) {
	return tool_calllocalstore.Tool(opts)
}
func SendOrderEmailTool(store *ledger.Store, opts SendOrderEmailOptions) (agent.Tool, error) {
	return tool_sendorderemail.Tool(store, opts)
}
