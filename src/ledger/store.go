// Package ledger reads and updates the procurement datasets: the contracts
// ledger, the site inventory, and the supplier directory. Each dataset is a
// flat CSV file rewritten in full on update.
package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/afero"
)

// Dataset names a tabular store.
type Dataset string

const (
	Contracts Dataset = "contracts"
	Inventory Dataset = "inventory"
	Suppliers Dataset = "suppliers"
)

// Default policy thresholds for inventory storage fractions.
const (
	DefaultLowThreshold  = 0.05
	DefaultHighThreshold = 0.90
	DefaultPreviewRows   = 10
)

// Config locates the dataset files and sets the summary policy.
type Config struct {
	ContractsPath string
	InventoryPath string
	SuppliersPath string
	LowThreshold  float64
	HighThreshold float64
	PreviewRows   int
}

// Contract is one row of the contracts ledger.
type Contract struct {
	ProductID    string
	ProductName  string
	Quantity     int64
	Used         int64
	UnitPriceEUR float64
	SupplierID   string
}

// Remaining is the contracted headroom.
func (c Contract) Remaining() int64 { return c.Quantity - c.Used }

// InventoryItem is one row of the inventory dataset.
type InventoryItem struct {
	ProductID   string
	ProductName string
	// Storage is the stock level as a fraction of capacity.
	Storage float64
}

// Supplier is one row of the supplier directory.
type Supplier struct {
	SupplierID string
	Name       string
	Email      string
	Phone      string
}

// Store provides access to the datasets on an afero filesystem.
type Store struct {
	fs     afero.Fs
	cfg    Config
	logger *slog.Logger

	// mu serializes read-modify-write cycles on the contracts file.
	mu sync.Mutex
}

// NewStore creates a store. Zero thresholds fall back to the defaults.
func NewStore(fs afero.Fs, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.LowThreshold == 0 {
		cfg.LowThreshold = DefaultLowThreshold
	}
	if cfg.HighThreshold == 0 {
		cfg.HighThreshold = DefaultHighThreshold
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	return &Store{fs: fs, cfg: cfg, logger: logger.With("component", "ledger")}
}

// Config returns the effective configuration.
func (s *Store) Config() Config { return s.cfg }

// ParseDataset resolves a dataset name. An empty name means contracts.
func ParseDataset(name string) (Dataset, error) {
	switch Dataset(name) {
	case "", Contracts:
		return Contracts, nil
	case Inventory:
		return Inventory, nil
	case Suppliers:
		return Suppliers, nil
	}
	return "", &DatasetNotFoundError{Name: name}
}

// Path returns the file backing a dataset.
func (s *Store) Path(ds Dataset) (string, error) {
	var p string
	switch ds {
	case Contracts:
		p = s.cfg.ContractsPath
	case Inventory:
		p = s.cfg.InventoryPath
	case Suppliers:
		p = s.cfg.SuppliersPath
	default:
		return "", &DatasetNotFoundError{Name: string(ds)}
	}
	if p == "" {
		return "", &DatasetNotFoundError{Name: string(ds)}
	}
	return p, nil
}

// Load reads a dataset into a Table.
func (s *Store) Load(ds Dataset) (*Table, error) {
	path, err := s.Path(ds)
	if err != nil {
		return nil, err
	}
	return s.loadPath(path)
}

func (s *Store) loadPath(path string) (*Table, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, &StoreUnreadableError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := parseTable(path, f)
	if err != nil {
		return nil, &StoreUnreadableError{Path: path, Err: err}
	}
	return t, nil
}

var contractColumns = []string{"product_id", "product_name", "quantity", "used", "unit_price_eur", "supplier_id"}

func contractFromRow(t *Table, idx map[string]int, row []string) (Contract, error) {
	qty, err := parseQuantity(t.Cell(row, idx["quantity"]))
	if err != nil {
		return Contract{}, err
	}
	used, err := parseQuantity(t.Cell(row, idx["used"]))
	if err != nil {
		return Contract{}, err
	}
	var price float64
	if v := t.Cell(row, idx["unit_price_eur"]); v != "" {
		price, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return Contract{}, fmt.Errorf("invalid unit price %q", v)
		}
	}
	return Contract{
		ProductID:    t.Cell(row, idx["product_id"]),
		ProductName:  t.Cell(row, idx["product_name"]),
		Quantity:     qty,
		Used:         used,
		UnitPriceEUR: price,
		SupplierID:   t.Cell(row, idx["supplier_id"]),
	}, nil
}

// Contracts returns every contract row.
func (s *Store) Contracts() ([]Contract, error) {
	t, err := s.Load(Contracts)
	if err != nil {
		return nil, err
	}
	idx, err := t.requireColumns(contractColumns...)
	if err != nil {
		return nil, &StoreUnreadableError{Path: t.Path, Err: err}
	}
	out := make([]Contract, 0, len(t.Rows))
	for _, row := range t.Rows {
		c, err := contractFromRow(t, idx, row)
		if err != nil {
			return nil, &StoreUnreadableError{Path: t.Path, Err: err}
		}
		out = append(out, c)
	}
	return out, nil
}

// Contract looks up a single contract by product id.
func (s *Store) Contract(productID string) (Contract, error) {
	contracts, err := s.Contracts()
	if err != nil {
		return Contract{}, err
	}
	for _, c := range contracts {
		if c.ProductID == productID {
			return c, nil
		}
	}
	return Contract{}, &ProductNotFoundError{ProductID: productID}
}

// Inventory returns every inventory row.
func (s *Store) Inventory() ([]InventoryItem, error) {
	t, err := s.Load(Inventory)
	if err != nil {
		return nil, err
	}
	idx, err := t.requireColumns("product_id", "storage")
	if err != nil {
		return nil, &StoreUnreadableError{Path: t.Path, Err: err}
	}
	nameCol := t.Column("product_name")
	out := make([]InventoryItem, 0, len(t.Rows))
	for _, row := range t.Rows {
		storage, err := parseFraction(t.Cell(row, idx["storage"]))
		if err != nil {
			return nil, &StoreUnreadableError{Path: t.Path, Err: err}
		}
		out = append(out, InventoryItem{
			ProductID:   t.Cell(row, idx["product_id"]),
			ProductName: t.Cell(row, nameCol),
			Storage:     storage,
		})
	}
	return out, nil
}

// InventoryItem looks up the inventory level of a product.
func (s *Store) InventoryItem(productID string) (InventoryItem, error) {
	items, err := s.Inventory()
	if err != nil {
		return InventoryItem{}, err
	}
	for _, it := range items {
		if it.ProductID == productID {
			return it, nil
		}
	}
	return InventoryItem{}, &ProductNotFoundError{ProductID: productID}
}

// LowStock returns inventory items strictly below the low threshold.
func (s *Store) LowStock() ([]InventoryItem, error) {
	items, err := s.Inventory()
	if err != nil {
		return nil, err
	}
	var out []InventoryItem
	for _, it := range items {
		if it.Storage < s.cfg.LowThreshold {
			out = append(out, it)
		}
	}
	return out, nil
}

// Supplier looks up a supplier by id.
func (s *Store) Supplier(supplierID string) (Supplier, error) {
	t, err := s.Load(Suppliers)
	if err != nil {
		return Supplier{}, err
	}
	idx, err := t.requireColumns("supplier_id")
	if err != nil {
		return Supplier{}, &StoreUnreadableError{Path: t.Path, Err: err}
	}
	for _, row := range t.Rows {
		if t.Cell(row, idx["supplier_id"]) != supplierID {
			continue
		}
		return Supplier{
			SupplierID: supplierID,
			Name:       t.Cell(row, t.Column("name")),
			Email:      t.Cell(row, t.Column("email")),
			Phone:      t.Cell(row, t.Column("phone")),
		}, nil
	}
	return Supplier{}, fmt.Errorf("supplier '%s' not found", supplierID)
}

// UsageUpdate describes a committed or planned change to a contract.
type UsageUpdate struct {
	Contract   Contract
	Delta      int64
	UsedBefore int64
	UsedAfter  int64
}

// Remaining is the headroom after the update.
func (u *UsageUpdate) Remaining() int64 { return u.Contract.Quantity - u.UsedAfter }

// Message renders the confirmation text returned to the model.
func (u *UsageUpdate) Message() string {
	return fmt.Sprintf("Updated %s (ID: %s)\nUsed: %d units\nTotal used: %d/%d\nRemaining: %d units",
		u.Contract.ProductName, u.Contract.ProductID, u.Delta, u.UsedAfter, u.Contract.Quantity, u.Remaining())
}

// plan applies delta to the in-memory table without touching the filesystem.
func (s *Store) plan(productID string, delta int64) (*Table, *Table, *UsageUpdate, error) {
	if delta <= 0 {
		return nil, nil, nil, ErrInvalidQuantity
	}
	t, err := s.Load(Contracts)
	if err != nil {
		return nil, nil, nil, err
	}
	idx, err := t.requireColumns(contractColumns...)
	if err != nil {
		return nil, nil, nil, &StoreUnreadableError{Path: t.Path, Err: err}
	}

	for i, row := range t.Rows {
		if t.Cell(row, idx["product_id"]) != productID {
			continue
		}
		c, err := contractFromRow(t, idx, row)
		if err != nil {
			return nil, nil, nil, &StoreUnreadableError{Path: t.Path, Err: err}
		}
		if delta > c.Quantity-c.Used {
			return nil, nil, nil, &QuantityExceededError{
				Requested: delta,
				Available: c.Quantity - c.Used,
				Total:     c.Quantity,
				Used:      c.Used,
			}
		}

		newUsed := c.Used + delta
		next := t.clone()
		for len(next.Rows[i]) <= idx["used"] {
			next.Rows[i] = append(next.Rows[i], "")
		}
		next.Rows[i][idx["used"]] = strconv.FormatInt(newUsed, 10)

		update := &UsageUpdate{Contract: c, Delta: delta, UsedBefore: c.Used, UsedAfter: newUsed}
		update.Contract.Used = newUsed
		return t, next, update, nil
	}
	return nil, nil, nil, &ProductNotFoundError{ProductID: productID}
}

// UpdateUsed adds delta to the used quantity of a contract. The file is
// replaced atomically; on any failure it is left unchanged.
func (s *Store) UpdateUsed(ctx context.Context, productID string, delta int64) (*UsageUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, next, update, err := s.plan(productID, delta)
	if err != nil {
		s.logger.Info("usage update rejected", "product_id", productID, "delta", delta, "error", err)
		return nil, err
	}

	data, err := next.encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode contracts: %w", err)
	}
	if err := s.replaceFile(next.Path, data); err != nil {
		return nil, err
	}

	s.logger.Info("usage updated",
		"product_id", productID, "delta", delta,
		"used_before", update.UsedBefore, "used_after", update.UsedAfter)
	return update, nil
}

// replaceFile writes data to a sibling temp file and renames it over path.
func (s *Store) replaceFile(path string, data []byte) error {
	perm := fileMode(s.fs, path)

	tmp, err := afero.TempFile(s.fs, filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	_ = s.fs.Chmod(tmpName, perm)
	if err := s.fs.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func fileMode(fs afero.Fs, path string) os.FileMode {
	if fi, err := fs.Stat(path); err == nil {
		return fi.Mode().Perm()
	}
	return 0o644
}
