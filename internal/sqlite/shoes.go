package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

var selectShoesSQL = "SELECT " + strings.Join(shoeColumns, ", ") + " FROM shoes"

var upsertShoeSQL = func() string {
	placeholders := make([]string, len(shoeColumns))
	updates := make([]string, 0, len(shoeColumns)-1)
	for i, c := range shoeColumns {
		placeholders[i] = "?"
		if c != "shoe_id" && c != "created_at" {
			updates = append(updates, c+" = excluded."+c)
		}
	}
	return fmt.Sprintf("INSERT INTO shoes (%s) VALUES (%s) ON CONFLICT(shoe_id) DO UPDATE SET %s",
		strings.Join(shoeColumns, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))
}()

// LoadShoes implements types.ShoeStore. Shoes are returned in creation
// order.
func (b *Backend) LoadShoes(ctx context.Context) ([]*types.Shoe, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.QueryContext(ctx, selectShoesSQL+" ORDER BY created_at, shoe_id")
	if err != nil {
		return nil, fmt.Errorf("querying shoes: %w", err)
	}
	defer rows.Close()

	var shoes []*types.Shoe
	for rows.Next() {
		rec, err := scanShoeRecord(rows)
		if err != nil {
			return nil, err
		}
		s, err := hydrateShoe(rec)
		if err != nil {
			return nil, err
		}
		shoes = append(shoes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shoes, nil
}

// SaveShoes implements types.ShoeStore. All shoes are written in one
// transaction, then shoes.jsonl is persisted once.
func (b *Backend) SaveShoes(ctx context.Context, shoes ...*types.Shoe) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	if len(shoes) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	for _, s := range shoes {
		if s == nil || s.ShoeID == "" {
			return types.ErrInvalidID
		}
		args, err := shoeArgs(dehydrateShoe(s))
		if err != nil {
			return fmt.Errorf("encoding shoe %s: %w", s.ShoeID, err)
		}
		if _, err := tx.ExecContext(ctx, upsertShoeSQL, args...); err != nil {
			return fmt.Errorf("upserting shoe %s: %w", s.ShoeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	return b.persist(shoesJSONL, b.persistShoesJSONL)
}

// DeleteShoe implements types.ShoeStore.
func (b *Backend) DeleteShoe(ctx context.Context, shoeID string) error {
	if shoeID == "" {
		return types.ErrInvalidID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	res, err := b.db.ExecContext(ctx, "DELETE FROM shoes WHERE shoe_id = ?", shoeID)
	if err != nil {
		return fmt.Errorf("deleting shoe: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("shoe %s: %w", shoeID, types.ErrNotFound)
	}
	return b.persist(shoesJSONL, b.persistShoesJSONL)
}

// persistShoesJSONL rewrites shoes.jsonl from the shoes table.
func (b *Backend) persistShoesJSONL() error {
	rows, err := b.db.Query(selectShoesSQL + " ORDER BY created_at, shoe_id")
	if err != nil {
		return fmt.Errorf("reading shoes for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		rec, err := scanShoeRecord(rows)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding shoe %s: %w", rec.ShoeID, err)
		}
		records = append(records, raw)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, shoesJSONL), records)
}

// compile-time interface checks
var (
	_ types.ShoeStore      = (*Backend)(nil)
	_ types.ActivitySource = (*Backend)(nil)
	_ types.ActivityWriter = (*Backend)(nil)
)
