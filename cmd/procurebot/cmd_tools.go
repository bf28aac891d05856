package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/app"
)

// ToolsCmd represents all tool-related commands
type ToolsCmd struct {
	List ToolsListCmd `cmd:"" help:"List available tools"`
	Show ToolsShowCmd `cmd:"" help:"Show a tool's description and parameter schema"`
}

// ToolsListCmd lists available tools
type ToolsListCmd struct {
	Format string `short:"f" enum:"table,json,simple" default:"table" help:"Output format"`
}

// toolInfo is the printable view of a tool.
type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Effect      string `json:"effect"`
	Parameters  any    `json:"parameters,omitempty"`
}

func (c *ToolsListCmd) Run(ctx context.Context, cli *CLI) error {
	toolbox, err := loadToolbox(ctx, cli)
	if err != nil {
		return err
	}
	infos := describeTools(toolbox)

	switch c.Format {
	case "json":
		return printJSON(os.Stdout, infos)
	case "simple":
		for _, info := range infos {
			fmt.Println(info.Name)
		}
		return nil
	default:
		return printToolsTable(os.Stdout, infos)
	}
}

// ToolsShowCmd shows tool details
type ToolsShowCmd struct {
	Name string `arg:"" help:"Tool name"`
}

func (c *ToolsShowCmd) Run(ctx context.Context, cli *CLI) error {
	toolbox, err := loadToolbox(ctx, cli)
	if err != nil {
		return err
	}
	tool, ok := toolbox.GetTool(c.Name)
	if !ok {
		return fmt.Errorf("unknown tool %q (available: %v)", c.Name, toolbox.Names())
	}
	info := toolInfo{
		Name:        tool.GetName(),
		Description: tool.GetDescription(),
		Effect:      tool.GetEffect().String(),
		Parameters:  tool.GetParameters(),
	}
	return printJSON(os.Stdout, info)
}

// loadToolbox builds the toolbox the assistant would get with the current
// configuration, without connecting to a model.
func loadToolbox(ctx context.Context, cli *CLI) (*agent.DefaultToolbox, error) {
	a, err := newApp(ctx, cli, createCLILogger(cli.LogLevel), app.Options{NoModel: true, NoDatabase: true})
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Toolbox, nil
}

// describeTools lists the toolbox sorted by name.
func describeTools(toolbox *agent.DefaultToolbox) []toolInfo {
	tools := toolbox.Tools()
	infos := make([]toolInfo, 0, len(tools))
	for _, tool := range tools {
		infos = append(infos, toolInfo{
			Name:        tool.GetName(),
			Description: tool.GetDescription(),
			Effect:      tool.GetEffect().String(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func printToolsTable(out io.Writer, infos []toolInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEFFECT\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Effect, firstLine(info.Description))
	}
	return w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
