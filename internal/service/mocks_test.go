package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketsync-api/internal/marketplace"
	"marketsync-api/internal/model"
	"marketsync-api/internal/repository"
)

// mockStore is an in-memory repository.Store for service tests.
type mockStore struct {
	mu sync.Mutex

	feeds      map[string]*model.Feed
	batches    map[string]*model.Batch
	batchItems map[string][]*model.BatchItem
	syncStatus map[string]*model.InventorySyncStatus
	pool       []*model.IdentifierPoolEntry

	createFeedErr  error
	createBatchErr error
	updateItemErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		feeds:      make(map[string]*model.Feed),
		batches:    make(map[string]*model.Batch),
		batchItems: make(map[string][]*model.BatchItem),
		syncStatus: make(map[string]*model.InventorySyncStatus),
	}
}

func syncKey(productID int64, sku string) string {
	return fmt.Sprintf("%d/%s", productID, sku)
}

func (m *mockStore) CreateFeed(ctx context.Context, feed *model.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFeedErr != nil {
		return m.createFeedErr
	}
	m.feeds[feed.FeedID] = feed
	return nil
}

func (m *mockStore) GetFeed(ctx context.Context, feedID string) (*model.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	feed, ok := m.feeds[feedID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return feed, nil
}

func (m *mockStore) ListOpenFeeds(ctx context.Context) ([]*model.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open []*model.Feed
	for _, f := range m.feeds {
		if !f.Status.IsTerminal() {
			open = append(open, f)
		}
	}
	return open, nil
}

func (m *mockStore) UpdateFeedStatus(ctx context.Context, feedID string, status model.FeedStatus, wpid string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	feed, ok := m.feeds[feedID]
	if !ok {
		return repository.ErrNotFound
	}
	feed.Status = status
	if wpid != "" {
		feed.WPID = wpid
	}
	if raw != nil {
		feed.RawAPIResponse = raw
	}
	if status.IsTerminal() && feed.ProcessedAt == nil {
		now := time.Now()
		feed.ProcessedAt = &now
	}
	return nil
}

func (m *mockStore) CreateBatch(ctx context.Context, batch *model.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createBatchErr != nil {
		return m.createBatchErr
	}
	m.batches[batch.ID] = batch
	return nil
}

func (m *mockStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return batch, nil
}

func (m *mockStore) ListOpenBatches(ctx context.Context) ([]*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open []*model.Batch
	for _, b := range m.batches {
		if !b.Status.IsTerminal() {
			open = append(open, b)
		}
	}
	return open, nil
}

func (m *mockStore) ListChildBatches(ctx context.Context, parentID string) ([]*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var children []*model.Batch
	for _, b := range m.batches {
		if b.ParentBatchID == parentID {
			children = append(children, b)
		}
	}
	return children, nil
}

func (m *mockStore) UpdateBatchResult(ctx context.Context, id string, successCount, failedCount, progressCurrent int, status model.BatchStatus, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return repository.ErrNotFound
	}
	batch.SuccessCount = successCount
	batch.FailedCount = failedCount
	batch.ProgressCurrent = progressCurrent
	batch.Status = status
	if completedAt != nil {
		batch.CompletedAt = completedAt
	}
	return nil
}

func (m *mockStore) CreateBatchItems(ctx context.Context, items []model.BatchItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		item := items[i]
		m.batchItems[item.BatchID] = append(m.batchItems[item.BatchID], &item)
	}
	return nil
}

func (m *mockStore) ListBatchItems(ctx context.Context, batchID string) ([]*model.BatchItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchItems[batchID], nil
}

func (m *mockStore) UpdateBatchItem(ctx context.Context, batchID, sku string, status model.ItemStatus, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateItemErr != nil {
		return m.updateItemErr
	}
	for _, item := range m.batchItems[batchID] {
		if item.SKU == sku {
			item.Status = status
			item.ErrorMessage = errorMessage
			now := time.Now()
			item.ProcessedAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockStore) CountFeedsByStatus(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, f := range m.feeds {
		counts[string(f.Status)]++
	}
	return counts, nil
}

func (m *mockStore) UpsertSyncStatus(ctx context.Context, s *model.InventorySyncStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncStatus[syncKey(s.ProductID, s.SKU)] = s
	return nil
}

func (m *mockStore) GetSyncStatus(ctx context.Context, productID int64, sku string) (*model.InventorySyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.syncStatus[syncKey(productID, sku)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return row, nil
}

func (m *mockStore) GetSyncStatusBySKU(ctx context.Context, sku string) (*model.InventorySyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.syncStatus {
		if row.SKU == sku {
			return row, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockStore) ListRetryable(ctx context.Context, maxRetries int, cutoff time.Time) ([]*model.InventorySyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []*model.InventorySyncStatus
	for _, row := range m.syncStatus {
		if row.Status == model.SyncStatusFailed && row.RetryCount < maxRetries && row.LastSyncTime.Before(cutoff) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *mockStore) MarkRetrying(ctx context.Context, productID int64, sku string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.syncStatus[syncKey(productID, sku)]
	if !ok {
		return repository.ErrNotFound
	}
	row.Status = model.SyncStatusRetrying
	return nil
}

func (m *mockStore) CountSyncByStatus(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, row := range m.syncStatus {
		counts[string(row.Status)]++
	}
	return counts, nil
}

func (m *mockStore) AllocateIdentifier(ctx context.Context, productID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.pool {
		if entry.IsUsed && entry.ProductID == productID {
			return entry.Code, nil
		}
	}
	for _, entry := range m.pool {
		if !entry.IsUsed {
			entry.IsUsed = true
			entry.ProductID = productID
			now := time.Now()
			entry.UsedAt = &now
			return entry.Code, nil
		}
	}
	return "", repository.ErrPoolExhausted
}

func (m *mockStore) BindIdentifier(ctx context.Context, code string, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.pool {
		if entry.Code == code {
			entry.IsUsed = true
			entry.ProductID = productID
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockStore) ReleaseIdentifier(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.pool {
		if entry.Code == code {
			entry.IsUsed = false
			entry.ProductID = 0
			entry.UsedAt = nil
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockStore) GetIdentifierEntry(ctx context.Context, code string) (*model.IdentifierPoolEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.pool {
		if entry.Code == code {
			return entry, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockStore) LoadIdentifiers(ctx context.Context, codes []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inserted int64
	for _, code := range codes {
		exists := false
		for _, entry := range m.pool {
			if entry.Code == code {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		m.pool = append(m.pool, &model.IdentifierPoolEntry{
			ID:   int64(len(m.pool) + 1),
			Code: code,
		})
		inserted++
	}
	return inserted, nil
}

func (m *mockStore) CountUnusedIdentifiers(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, entry := range m.pool {
		if !entry.IsUsed {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) Close() error { return nil }

var _ repository.Store = (*mockStore)(nil)

// mockCatalog is an in-memory repository.CatalogRepository.
type mockCatalog struct {
	products map[int64]*model.Product
	upcRefs  map[int64]string
	err      error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: make(map[int64]*model.Product),
		upcRefs:  make(map[int64]string),
	}
}

func (m *mockCatalog) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalog) GetProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCatalog) ListProductUPCRefs(ctx context.Context) (map[int64]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.upcRefs, nil
}

var _ repository.CatalogRepository = (*mockCatalog)(nil)

// mockAPI is a scriptable marketplace.API.
type mockAPI struct {
	mu sync.Mutex

	submitAcks     []*marketplace.FeedAck
	submitErr      error
	submitLateErr  error
	submitOKBudget int
	submitCalls    []submittedFeed
	statusPages  map[string][]*marketplace.FeedStatusResponse
	statusErrs   map[string]map[int]error
	statusCalls  []statusCall
	updateErr    error
	updateCalls  []inventoryCall
	updateErrFor map[string]error
}

type submittedFeed struct {
	market   string
	feedType string
	document []byte
}

type statusCall struct {
	feedID string
	offset int
}

type inventoryCall struct {
	market   string
	sku      string
	quantity int
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		statusPages:  make(map[string][]*marketplace.FeedStatusResponse),
		statusErrs:   make(map[string]map[int]error),
		updateErrFor: make(map[string]error),
	}
}

// submitErrAfter makes SubmitFeed succeed n times, then fail with err.
func (m *mockAPI) submitErrAfter(n int, err error) {
	m.submitOKBudget = n
	m.submitLateErr = err
}

func (m *mockAPI) SubmitFeed(ctx context.Context, market, feedType string, document []byte) (*marketplace.FeedAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitCalls = append(m.submitCalls, submittedFeed{market: market, feedType: feedType, document: document})
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if m.submitLateErr != nil && len(m.submitCalls) > m.submitOKBudget {
		return nil, m.submitLateErr
	}
	if len(m.submitAcks) > 0 {
		ack := m.submitAcks[0]
		m.submitAcks = m.submitAcks[1:]
		return ack, nil
	}
	return &marketplace.FeedAck{FeedID: fmt.Sprintf("FEED-%d", len(m.submitCalls))}, nil
}

func (m *mockAPI) FeedStatus(ctx context.Context, market, feedID string, offset int) (*marketplace.FeedStatusResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls = append(m.statusCalls, statusCall{feedID: feedID, offset: offset})

	if errs, ok := m.statusErrs[feedID]; ok {
		if err, ok := errs[offset]; ok {
			return nil, err
		}
	}

	pages := m.statusPages[feedID]
	page := offset / 50
	if page >= len(pages) {
		return &marketplace.FeedStatusResponse{FeedID: feedID}, nil
	}
	// Copy so callers appending to ItemDetails don't mutate the script.
	resp := *pages[page]
	resp.ItemDetails.ItemIngestionStatus = append([]marketplace.ItemIngestion(nil), pages[page].ItemDetails.ItemIngestionStatus...)
	return &resp, nil
}

func (m *mockAPI) UpdateInventory(ctx context.Context, market, sku string, quantity int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, inventoryCall{market: market, sku: sku, quantity: quantity})
	if err, ok := m.updateErrFor[sku]; ok {
		return nil, err
	}
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return []byte(`{"ok":true}`), nil
}

var _ marketplace.API = (*mockAPI)(nil)

// immediateScheduler runs one-shot jobs synchronously and records
// recurring registrations without ticking.
type immediateScheduler struct {
	recurring []string
	onceNames []string
}

func (s *immediateScheduler) ScheduleRecurring(name string, interval time.Duration, job func()) {
	s.recurring = append(s.recurring, name)
}

func (s *immediateScheduler) ScheduleOnce(name string, delay time.Duration, job func()) {
	s.onceNames = append(s.onceNames, name)
	job()
}

func (s *immediateScheduler) Stop() {}

var _ Scheduler = (*immediateScheduler)(nil)
