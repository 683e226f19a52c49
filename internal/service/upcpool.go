package service

import (
	"context"
	"errors"
	"log"

	"marketsync-api/internal/model"
	"marketsync-api/internal/repository"
)

// UPCPoolService allocates pre-purchased UPC codes to products and
// reconciles the pool against the catalog's own UPC references.
type UPCPoolService struct {
	store   repository.IdentifierPoolRepository
	catalog repository.CatalogRepository
}

// NewUPCPoolService creates a new UPC pool service.
func NewUPCPoolService(store repository.IdentifierPoolRepository, catalog repository.CatalogRepository) *UPCPoolService {
	return &UPCPoolService{store: store, catalog: catalog}
}

// Allocate assigns a UPC to the product. Idempotent: a product that
// already holds a code gets the same code back.
func (s *UPCPoolService) Allocate(ctx context.Context, productID int64) (string, error) {
	code, err := s.store.AllocateIdentifier(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrPoolExhausted) {
			log.Printf("[UPCPool] Pool exhausted allocating for product %d", productID)
		}
		return "", err
	}
	return code, nil
}

// Release returns a code to the pool.
func (s *UPCPoolService) Release(ctx context.Context, code string) error {
	return s.store.ReleaseIdentifier(ctx, code)
}

// Load bulk-loads codes into the pool, skipping any already present.
// Returns how many were actually inserted.
func (s *UPCPoolService) Load(ctx context.Context, codes []string) (int64, error) {
	inserted, err := s.store.LoadIdentifiers(ctx, codes)
	if err != nil {
		return 0, err
	}
	log.Printf("[UPCPool] Loaded %d/%d codes", inserted, len(codes))
	return inserted, nil
}

// CountUnused returns how many codes remain allocatable.
func (s *UPCPoolService) CountUnused(ctx context.Context) (int64, error) {
	return s.store.CountUnusedIdentifiers(ctx)
}

// Entry retrieves a pool entry by code.
func (s *UPCPoolService) Entry(ctx context.Context, code string) (*model.IdentifierPoolEntry, error) {
	return s.store.GetIdentifierEntry(ctx, code)
}

// PoolDriftReport summarizes one reconciliation pass.
type PoolDriftReport struct {
	CatalogRefs int `json:"catalog_refs"`
	Corrected   int `json:"corrected"`
	Unknown     int `json:"unknown"`
}

// SyncStatus reconciles pool bindings against the catalog: any code the
// catalog references that the pool holds as unused, or bound to a
// different product, is re-bound to the referencing product. Codes the
// catalog references but the pool has never seen are reported, not
// invented.
func (s *UPCPoolService) SyncStatus(ctx context.Context) (*PoolDriftReport, error) {
	refs, err := s.catalog.ListProductUPCRefs(ctx)
	if err != nil {
		return nil, err
	}

	report := &PoolDriftReport{CatalogRefs: len(refs)}
	for productID, code := range refs {
		if code == "" {
			continue
		}

		entry, err := s.store.GetIdentifierEntry(ctx, code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				report.Unknown++
				continue
			}
			return nil, err
		}

		if entry.IsUsed && entry.ProductID == productID {
			continue
		}

		if err := s.store.BindIdentifier(ctx, code, productID); err != nil {
			log.Printf("[UPCPool] Failed to re-bind code %s to product %d: %v", code, productID, err)
			continue
		}
		report.Corrected++
	}

	log.Printf("[UPCPool] Drift sync: %d catalog refs, %d corrected, %d unknown",
		report.CatalogRefs, report.Corrected, report.Unknown)
	return report, nil
}
