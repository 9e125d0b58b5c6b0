package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cloud-asset-api/internal/model"
)

// AssetRepo encapsulates all database queries related to assets.  Every
// method that touches a single record takes the owner as well, so a record
// owned by someone else behaves exactly like a missing one.
type AssetRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewAssetRepo constructs an AssetRepo with the provided DB handle.
func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{db: db, now: time.Now}
}

const assetColumns = "id, name, owner, type, region, created_at, updated_at"

// Create inserts a new asset, assigning its ID and timestamps.
func (r *AssetRepo) Create(ctx context.Context, a *model.Asset) error {
	now := r.now().UTC().Truncate(time.Second)
	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now

	const q = "INSERT INTO assets (" + assetColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, q, a.ID, a.Name, a.Owner, a.Type, a.Region, a.CreatedAt, a.UpdatedAt); err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetByID fetches an asset by its ID regardless of owner.  Callers apply
// the ownership policy themselves.
func (r *AssetRepo) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	const q = "SELECT " + assetColumns + " FROM assets WHERE id = ?"
	var a model.Asset
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&a.ID, &a.Name, &a.Owner, &a.Type, &a.Region, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &a, nil
}

// ListByOwner returns all assets for a specific owner, oldest first.
func (r *AssetRepo) ListByOwner(ctx context.Context, owner string) ([]model.Asset, error) {
	const q = "SELECT " + assetColumns + " FROM assets WHERE owner = ? ORDER BY created_at, id"
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	out := []model.Asset{}
	for rows.Next() {
		var a model.Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.Owner, &a.Type, &a.Region, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return out, nil
}

// UpdateByIDAndOwner overwrites name, type and region of an asset owned by
// a.Owner.  It returns ErrAssetNotFound when no row matches.
func (r *AssetRepo) UpdateByIDAndOwner(ctx context.Context, a *model.Asset) error {
	a.UpdatedAt = r.now().UTC().Truncate(time.Second)
	const q = `UPDATE assets
	           SET name = ?, type = ?, region = ?, updated_at = ?
	           WHERE id = ? AND owner = ?`
	res, err := r.db.ExecContext(ctx, q, a.Name, a.Type, a.Region, a.UpdatedAt, a.ID, a.Owner)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// DeleteByIDAndOwner removes an asset owned by owner.  It returns
// ErrAssetNotFound when no row matches.
func (r *AssetRepo) DeleteByIDAndOwner(ctx context.Context, id, owner string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ? AND owner = ?", id, owner)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssetNotFound
	}
	return nil
}
