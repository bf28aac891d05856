package ledger

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractsCSV = `product_id,product_name,quantity,used,unit_price_eur,supplier_id
C001,Nitrile Gloves (Box),100,20,12.50,S01
C002,Safety Goggles,40,40,8.90,S02
C003,Cable Ties 200mm,500,0,0.05,S01
`

const inventoryCSV = `product_id,product_name,storage
C001,Nitrile Gloves (Box),0.03
C002,Safety Goggles,0.95
C003,Cable Ties 200mm,0.50
`

const suppliersCSV = `supplier_id,name,email,phone
S01,Hagemann Industriebedarf,orders@hagemann.example,+49 89 1234
S02,Protecto GmbH,,+49 89 5678
`

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/contracts.csv", []byte(contractsCSV), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/inventory.csv", []byte(inventoryCSV), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/suppliers.csv", []byte(suppliersCSV), 0o644))
	return NewStore(fs, Config{
		ContractsPath: "/data/contracts.csv",
		InventoryPath: "/data/inventory.csv",
		SuppliersPath: "/data/suppliers.csv",
	}, nil), fs
}

func TestStore_Contract(t *testing.T) {
	s, _ := newTestStore(t)

	c, err := s.Contract("C001")
	require.NoError(t, err)
	assert.Equal(t, Contract{ProductID: "C001", ProductName: "Nitrile Gloves (Box)", Quantity: 100, Used: 20, UnitPriceEUR: 12.5, SupplierID: "S01"}, c)
	assert.Equal(t, int64(80), c.Remaining())

	_, err = s.Contract("C999")
	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.True(t, IsNotFound(err))
}

func TestStore_UpdateUsed_Scenario(t *testing.T) {
	s, fs := newTestStore(t)
	ctx := context.Background()

	update, err := s.UpdateUsed(ctx, "C001", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(20), update.UsedBefore)
	assert.Equal(t, int64(70), update.UsedAfter)
	assert.Equal(t, int64(30), update.Remaining())
	assert.Equal(t, "Updated Nitrile Gloves (Box) (ID: C001)\nUsed: 50 units\nTotal used: 70/100\nRemaining: 30 units", update.Message())

	persisted, err := s.Contract("C001")
	require.NoError(t, err)
	assert.Equal(t, int64(70), persisted.Used)

	before, err := afero.ReadFile(fs, "/data/contracts.csv")
	require.NoError(t, err)

	_, err = s.UpdateUsed(ctx, "C001", 40)
	var qe *QuantityExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, int64(30), qe.Available)
	assert.Contains(t, err.Error(), "Only 30 units available")
	assert.Equal(t, "Cannot use 40 units. Only 30 units available (total: 100, already used: 70)", err.Error())

	after, err := afero.ReadFile(fs, "/data/contracts.csv")
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected update must not touch the store")
}

func TestStore_UpdateUsed_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		delta   int64
		checkFn func(t *testing.T, err error)
	}{
		{
			name: "unknown product", id: "C404", delta: 1,
			checkFn: func(t *testing.T, err error) {
				assert.EqualError(t, err, "Product ID 'C404' not found in database")
			},
		},
		{
			name: "zero delta", id: "C001", delta: 0,
			checkFn: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidQuantity) },
		},
		{
			name: "negative delta", id: "C001", delta: -5,
			checkFn: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidQuantity) },
		},
		{
			name: "one over capacity", id: "C001", delta: 81,
			checkFn: func(t *testing.T, err error) {
				var qe *QuantityExceededError
				require.ErrorAs(t, err, &qe)
				assert.Equal(t, int64(80), qe.Available)
			},
		},
		{
			name: "quantity that would overflow", id: "C001", delta: math.MaxInt64,
			checkFn: func(t *testing.T, err error) {
				var qe *QuantityExceededError
				require.ErrorAs(t, err, &qe)
				assert.Equal(t, int64(80), qe.Available)
				assert.Equal(t, int64(math.MaxInt64), qe.Requested)
			},
		},
		{
			name: "exhausted contract", id: "C002", delta: 1,
			checkFn: func(t *testing.T, err error) {
				var qe *QuantityExceededError
				require.ErrorAs(t, err, &qe)
				assert.Equal(t, int64(0), qe.Available)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fs := newTestStore(t)
			_, err := s.UpdateUsed(context.Background(), tt.id, tt.delta)
			require.Error(t, err)
			tt.checkFn(t, err)

			data, err := afero.ReadFile(fs, "/data/contracts.csv")
			require.NoError(t, err)
			assert.Equal(t, contractsCSV, string(data))
		})
	}
}

func TestStore_PreviewUpdate_RejectsOverflow(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.PreviewUpdate("C001", math.MaxInt64-10)
	var qe *QuantityExceededError
	require.ErrorAs(t, err, &qe)

	c, err := s.Contract("C001")
	require.NoError(t, err)
	assert.Equal(t, int64(20), c.Used)
}

func TestStore_UpdateUsed_ExactCapacity(t *testing.T) {
	s, _ := newTestStore(t)
	update, err := s.UpdateUsed(context.Background(), "C001", 80)
	require.NoError(t, err)
	assert.Equal(t, int64(0), update.Remaining())
}

func TestStore_UpdateUsed_LeavesNoTempFiles(t *testing.T) {
	s, fs := newTestStore(t)
	_, err := s.UpdateUsed(context.Background(), "C003", 10)
	require.NoError(t, err)

	entries, err := afero.ReadDir(fs, "/data")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"contracts.csv", "inventory.csv", "suppliers.csv"}, names)

	data, err := afero.ReadFile(fs, "/data/contracts.csv")
	require.NoError(t, err)
	assert.Contains(t, string(data), "C003,Cable Ties 200mm,500,10,0.05,S01")
	assert.Contains(t, string(data), "C001,Nitrile Gloves (Box),100,20,12.50,S01", "other rows are untouched")
}

func TestStore_UpdateUsed_CancelledContext(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.UpdateUsed(ctx, "C001", 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStore_ReadOnlyFsIsUnchanged(t *testing.T) {
	s, fs := newTestStore(t)
	ro := NewStore(afero.NewReadOnlyFs(fs), s.Config(), nil)

	_, err := ro.UpdateUsed(context.Background(), "C001", 5)
	require.Error(t, err)

	c, err := s.Contract("C001")
	require.NoError(t, err)
	assert.Equal(t, int64(20), c.Used)
}

func TestStore_PreviewUpdate(t *testing.T) {
	s, fs := newTestStore(t)
	p, err := s.PreviewUpdate("C001", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(25), p.Update.UsedAfter)

	diff := p.Diff()
	assert.Contains(t, diff, "-C001,Nitrile Gloves (Box),100,20,12.50,S01")
	assert.Contains(t, diff, "+C001,Nitrile Gloves (Box),100,25,12.50,S01")

	data, err := afero.ReadFile(fs, "/data/contracts.csv")
	require.NoError(t, err)
	assert.Equal(t, contractsCSV, string(data))
}

func TestStore_InventoryAndSuppliers(t *testing.T) {
	s, _ := newTestStore(t)

	low, err := s.LowStock()
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "C001", low[0].ProductID)

	it, err := s.InventoryItem("C002")
	require.NoError(t, err)
	assert.InDelta(t, 0.95, it.Storage, 1e-9)

	sup, err := s.Supplier("S01")
	require.NoError(t, err)
	assert.Equal(t, "orders@hagemann.example", sup.Email)

	_, err = s.Supplier("S99")
	assert.Error(t, err)
}

func TestStore_Unreadable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.csv", []byte("product_id,name\n\"unterminated"), 0o644))
	s := NewStore(fs, Config{ContractsPath: "/missing.csv", InventoryPath: "/bad.csv"}, nil)

	var sue *StoreUnreadableError
	_, err := s.Summary(Contracts)
	require.ErrorAs(t, err, &sue)
	assert.Equal(t, "/missing.csv", sue.Path)

	_, err = s.Summary(Inventory)
	require.ErrorAs(t, err, &sue)

	_, err = s.Summary(Suppliers)
	var dnf *DatasetNotFoundError
	assert.ErrorAs(t, err, &dnf)
}

func TestParseDataset(t *testing.T) {
	ds, err := ParseDataset("")
	require.NoError(t, err)
	assert.Equal(t, Contracts, ds)

	ds, err = ParseDataset("inventory")
	require.NoError(t, err)
	assert.Equal(t, Inventory, ds)

	_, err = ParseDataset("orders")
	var dnf *DatasetNotFoundError
	require.ErrorAs(t, err, &dnf)
	assert.True(t, strings.HasPrefix(err.Error(), "Dataset 'orders' not found"))
}
