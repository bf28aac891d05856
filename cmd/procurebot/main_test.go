package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/config"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/orclient"
	"github.com/elee1766/procurebot/src/procureagent"
	"github.com/elee1766/procurebot/src/procureagent/tools"
	"github.com/elee1766/procurebot/src/voicecall"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"interrupted", fmt.Errorf("run: %w", context.Canceled), ExitInterrupted},
		{"timeout", context.DeadlineExceeded, ExitTimeout},
		{"invalid config", config.ValidationError{Field: "model", Message: "model is required"}, ExitConfig},
		{"missing config file", config.ErrNoConfigFile, ExitConfig},
		{"missing key", app.ErrMissingAPIKey, ExitAuth},
		{"unauthorized", &orclient.APIError{StatusCode: 401}, ExitAuth},
		{"unknown product", &ledger.ProductNotFoundError{ProductID: "C999"}, ExitNotFound},
		{"unknown dataset", &ledger.DatasetNotFoundError{Name: "orders"}, ExitNotFound},
		{"empty input", fmt.Errorf("prompt text is required: %w", app.ErrEmptyInput), ExitUsage},
		{"bad image", app.ErrUnsupportedFile, ExitUsage},
		{"provider down", &orclient.APIError{StatusCode: 502}, ExitNetwork},
		{"voice api", &voicecall.APIError{StatusCode: 500}, ExitNetwork},
		{"voice busy", voicecall.ErrServiceBusy, ExitNetwork},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestCLIOverrides(t *testing.T) {
	empty := cliOverrides(&CLI{})
	assert.Equal(t, &config.Config{}, empty)

	override := cliOverrides(&CLI{
		Provider: "gemini",
		Model:    "gemini-2.5-flash",
		Database: "/tmp/audit.db",
		Advisory: true,
		Temp:     0.2,
	})
	assert.Equal(t, "gemini", override.API.Provider)
	assert.Equal(t, "gemini-2.5-flash", override.API.Model)
	assert.Equal(t, "/tmp/audit.db", override.Data.DatabasePath)
	assert.Equal(t, "advisory", override.Confirmation.Mode)
	require.NotNil(t, override.API.Temperature)
	assert.InDelta(t, 0.2, *override.API.Temperature, 1e-9)
}

func TestPromptText(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(file, []byte("how many gloves are left?\n"), 0o644))

	tests := []struct {
		name    string
		cmd     PromptCmd
		want    string
		wantErr error
	}{
		{name: "args", cmd: PromptCmd{Text: []string{"order", "more", "gloves"}}, want: "order more gloves"},
		{name: "file", cmd: PromptCmd{File: file}, want: "how many gloves are left?"},
		{name: "args and file", cmd: PromptCmd{Text: []string{"site B:"}, File: file}, want: "site B:\nhow many gloves are left?"},
		{name: "image only", cmd: PromptCmd{Image: "photo.png"}, want: ""},
		{name: "empty", cmd: PromptCmd{}, wantErr: app.ErrEmptyInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.promptText()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&PromptCmd{File: filepath.Join(dir, "missing.txt")}).promptText()
	assert.Error(t, err)
}

func TestDescribeTools(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/contracts.csv",
		[]byte("product_id,product_name,quantity,used,unit_price_eur,supplier_id\nC001,Nitrile Gloves (Box),100,20,12.50,S01\n"), 0o644))
	toolbox, err := procureagent.NewToolbox(procureagent.Config{
		Ledger: ledger.NewStore(fs, ledger.Config{ContractsPath: "/data/contracts.csv"}, nil),
		Logger: slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	infos := describeTools(toolbox)
	names := make([]string, len(infos))
	effects := map[string]string{}
	for i, info := range infos {
		names[i] = info.Name
		effects[info.Name] = info.Effect
		assert.NotEmpty(t, info.Description, info.Name)
		assert.Nil(t, info.Parameters)
	}
	assert.IsNonDecreasing(t, names)
	assert.ElementsMatch(t, []string{tools.CalculateName, tools.ReadLedgerName, tools.UpdateUsedName, tools.CallLocalStoreName}, names)
	assert.Equal(t, "read", effects[tools.ReadLedgerName])
	assert.Equal(t, "mutate", effects[tools.UpdateUsedName])

	var buf bytes.Buffer
	require.NoError(t, printToolsTable(&buf, infos))
	assert.Contains(t, buf.String(), "NAME")
	assert.Contains(t, buf.String(), tools.UpdateUsedName)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Reads a dataset.", firstLine("Reads a dataset.\nMore detail."))
	assert.Equal(t, "single", firstLine("single"))
	assert.Equal(t, "", firstLine(""))
}

func TestDash(t *testing.T) {
	assert.Equal(t, "-", dash(""))
	assert.Equal(t, "+49 30 1234", dash("+49 30 1234"))
}
