package tool_readledger

import (
	"context"
	"testing"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, files map[string]string) *ledger.Store {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return ledger.NewStore(fs, ledger.Config{
		ContractsPath: "/data/contracts.csv",
		InventoryPath: "/data/inventory.csv",
		SuppliersPath: "/data/suppliers.csv",
	}, nil)
}

func TestReadLedgerTool(t *testing.T) {
	files := map[string]string{
		"/data/contracts.csv": "product_id,product_name,quantity,used,unit_price_eur,supplier_id\nC001,Nitrile Gloves (Box),100,20,12.50,S01\n",
		"/data/inventory.csv": "product_id,product_name,storage\nC001,Nitrile Gloves (Box),0.03\nC002,Safety Goggles,0.95\nC003,Cable Ties,0.50\n",
		"/data/suppliers.csv": "supplier_id,name,email,phone\nS01,Hagemann,orders@hagemann.example,\n",
	}

	tests := []struct {
		name        string
		files       map[string]string
		args        string
		expectError bool
		contains    []string
		excludes    []string
	}{
		{
			name:     "defaults to contracts",
			files:    files,
			args:     `{}`,
			contains: []string{"CSV File: /data/contracts.csv", "Shape: 1 rows, 6 columns", "C001"},
			excludes: []string{"Low storage items"},
		},
		{
			name:     "inventory reports threshold subsets",
			files:    files,
			args:     `{"dataset":"inventory"}`,
			contains: []string{"Low storage items (below 5%)", "High storage items (above 90%)", "Safety Goggles"},
		},
		{
			name:        "unknown dataset",
			files:       files,
			args:        `{"dataset":"invoices"}`,
			expectError: true,
			contains:    []string{"Error: Dataset 'invoices' not found"},
		},
		{
			name:        "supplier directory is not exposed",
			files:       files,
			args:        `{"dataset":"suppliers"}`,
			expectError: true,
			contains:    []string{"Dataset 'suppliers' not found"},
		},
		{
			name:        "missing file is unreadable",
			files:       map[string]string{},
			args:        `{"dataset":"contracts"}`,
			expectError: true,
			contains:    []string{"Error: Error reading CSV /data/contracts.csv"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, err := Tool(newStore(t, tt.files))
			require.NoError(t, err)

			call := &aisdk.ToolCall{ID: "call_1", Type: "function"}
			call.Function.Name = Name
			call.Function.Arguments = []byte(tt.args)

			resp, err := tool.Execute(context.Background(), call)
			require.NoError(t, err)
			assert.Equal(t, tt.expectError, resp.IsError)
			for _, want := range tt.contains {
				assert.Contains(t, resp.Text(), want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, resp.Text(), unwanted)
			}
		})
	}
}

func TestLegacyName(t *testing.T) {
	tool, err := ToolNamed(LegacyName, newStore(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "read_csv", tool.GetName())
	assert.Equal(t, "read", tool.GetEffect().String())
}
