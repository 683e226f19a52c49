package repository

import (
	"context"
	"database/sql"
	"fmt"

	"marketsync-api/internal/model"
)

// MySQLCatalogRepository implements CatalogRepository against the
// storefront's MySQL product catalog.
type MySQLCatalogRepository struct {
	db *sql.DB
}

// NewMySQLCatalogRepository creates a new MySQL catalog repository.
func NewMySQLCatalogRepository(db *sql.DB) *MySQLCatalogRepository {
	return &MySQLCatalogRepository{db: db}
}

// GetProduct retrieves a product by id.
func (r *MySQLCatalogRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT id, sku, name, COALESCE(upc, ''), quantity FROM products WHERE id = ? LIMIT 1`

	var p model.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.SKU, &p.Name, &p.UPC, &p.Quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}

// GetProductBySKU retrieves a product by SKU.
func (r *MySQLCatalogRepository) GetProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	query := `SELECT id, sku, name, COALESCE(upc, ''), quantity FROM products WHERE sku = ? LIMIT 1`

	var p model.Product
	err := r.db.QueryRowContext(ctx, query, sku).Scan(&p.ID, &p.SKU, &p.Name, &p.UPC, &p.Quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %s: %w", sku, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by sku: %w", err)
	}

	return &p, nil
}

// ListProductUPCRefs returns product_id -> UPC for every product carrying
// a UPC reference. Used to reconcile the identifier pool after partial
// failures left the two stores disagreeing.
func (r *MySQLCatalogRepository) ListProductUPCRefs(ctx context.Context) (map[int64]string, error) {
	query := `SELECT id, upc FROM products WHERE upc IS NOT NULL AND upc != ''`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list product UPC refs: %w", err)
	}
	defer rows.Close()

	refs := make(map[int64]string)
	for rows.Next() {
		var id int64
		var upc string
		if err := rows.Scan(&id, &upc); err != nil {
			return nil, fmt.Errorf("failed to scan product UPC ref: %w", err)
		}
		refs[id] = upc
	}
	return refs, rows.Err()
}

// Ensure MySQLCatalogRepository implements CatalogRepository
var _ CatalogRepository = (*MySQLCatalogRepository)(nil)
