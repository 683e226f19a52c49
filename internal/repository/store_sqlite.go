package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"marketsync-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-backed engine store.
// dbPath is the path to the SQLite database file (e.g., "./data/marketsync.db")
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

// createSQLiteTables creates the engine schema.
func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed_id TEXT NOT NULL UNIQUE,
		product_id INTEGER DEFAULT 0,
		sku TEXT DEFAULT '',
		upc TEXT DEFAULT '',
		market TEXT NOT NULL,
		feed_type TEXT NOT NULL,
		status TEXT NOT NULL,
		wpid TEXT DEFAULT '',
		submitted_at DATETIME NOT NULL,
		processed_at DATETIME,
		raw_api_response TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_feeds_status ON feeds(status);

	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		parent_batch_id TEXT DEFAULT '',
		batch_type TEXT NOT NULL,
		feed_id TEXT DEFAULT '',
		market TEXT NOT NULL,
		product_count INTEGER DEFAULT 0,
		success_count INTEGER DEFAULT 0,
		failed_count INTEGER DEFAULT 0,
		progress_current INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
	CREATE INDEX IF NOT EXISTS idx_batches_parent ON batches(parent_batch_id);

	CREATE TABLE IF NOT EXISTS batch_items (
		batch_id TEXT NOT NULL,
		product_id INTEGER DEFAULT 0,
		sku TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT DEFAULT '',
		processed_at DATETIME,
		PRIMARY KEY (batch_id, sku)
	);

	CREATE TABLE IF NOT EXISTS inventory_sync_status (
		product_id INTEGER NOT NULL,
		sku TEXT NOT NULL,
		market TEXT DEFAULT '',
		status TEXT NOT NULL,
		quantity INTEGER DEFAULT 0,
		retry_count INTEGER DEFAULT 0,
		last_sync_time DATETIME NOT NULL,
		response_data TEXT,
		PRIMARY KEY (product_id, sku)
	);
	CREATE INDEX IF NOT EXISTS idx_inventory_status ON inventory_sync_status(status);

	CREATE TABLE IF NOT EXISTS identifier_pool (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		is_used INTEGER DEFAULT 0,
		product_id INTEGER DEFAULT 0,
		used_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_pool_unused ON identifier_pool(is_used);
	`
	_, err := db.Exec(query)
	return err
}

// CreateFeed records a new feed submission.
func (s *SQLiteStore) CreateFeed(ctx context.Context, feed *model.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO feeds (feed_id, product_id, sku, upc, market, feed_type, status, wpid, submitted_at, raw_api_response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		feed.FeedID, feed.ProductID, feed.SKU, feed.UPC, feed.Market,
		feed.FeedType, string(feed.Status), feed.WPID, feed.SubmittedAt, string(feed.RawAPIResponse))
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}
	return nil
}

// GetFeed retrieves a feed by marketplace feed id.
func (s *SQLiteStore) GetFeed(ctx context.Context, feedID string) (*model.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, feed_id, product_id, sku, upc, market, feed_type, status, wpid, submitted_at, processed_at, raw_api_response
		FROM feeds WHERE feed_id = ?`

	return scanFeed(s.db.QueryRowContext(ctx, query, feedID))
}

// ListOpenFeeds returns feeds in SUBMITTED or PROCESSING state.
func (s *SQLiteStore) ListOpenFeeds(ctx context.Context) ([]*model.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, feed_id, product_id, sku, upc, market, feed_type, status, wpid, submitted_at, processed_at, raw_api_response
		FROM feeds WHERE status IN (?, ?) ORDER BY submitted_at`

	rows, err := s.db.QueryContext(ctx, query, string(model.FeedStatusSubmitted), string(model.FeedStatusProcessing))
	if err != nil {
		return nil, fmt.Errorf("failed to list open feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*model.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFeed(row rowScanner) (*model.Feed, error) {
	var feed model.Feed
	var status string
	var processedAt sql.NullTime
	var raw sql.NullString

	err := row.Scan(&feed.ID, &feed.FeedID, &feed.ProductID, &feed.SKU, &feed.UPC,
		&feed.Market, &feed.FeedType, &status, &feed.WPID, &feed.SubmittedAt, &processedAt, &raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}

	feed.Status = model.FeedStatus(status)
	if processedAt.Valid {
		feed.ProcessedAt = &processedAt.Time
	}
	if raw.Valid {
		feed.RawAPIResponse = []byte(raw.String)
	}
	return &feed, nil
}

// UpdateFeedStatus advances a feed's status. Only the Status Poller calls
// this; processed_at is set once the feed reaches a terminal state.
func (s *SQLiteStore) UpdateFeedStatus(ctx context.Context, feedID string, status model.FeedStatus, wpid string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE feeds SET
			status = ?,
			wpid = CASE WHEN ? != '' THEN ? ELSE wpid END,
			raw_api_response = CASE WHEN ? != '' THEN ? ELSE raw_api_response END,
			processed_at = CASE WHEN ? THEN COALESCE(processed_at, ?) ELSE processed_at END
		WHERE feed_id = ?`

	res, err := s.db.ExecContext(ctx, query,
		string(status), wpid, wpid, string(raw), string(raw),
		status.IsTerminal(), time.Now().UTC(), feedID)
	if err != nil {
		return fmt.Errorf("failed to update feed status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBatch records a new batch.
func (s *SQLiteStore) CreateBatch(ctx context.Context, batch *model.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO batches (id, parent_batch_id, batch_type, feed_id, market, product_count, success_count, failed_count, progress_current, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		batch.ID, batch.ParentBatchID, string(batch.BatchType), batch.FeedID, batch.Market,
		batch.ProductCount, batch.SuccessCount, batch.FailedCount, batch.ProgressCurrent,
		string(batch.Status), batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by id.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanBatch(s.db.QueryRowContext(ctx, batchSelect+` WHERE id = ?`, id))
}

const batchSelect = `
	SELECT id, parent_batch_id, batch_type, feed_id, market, product_count, success_count, failed_count, progress_current, status, created_at, completed_at
	FROM batches`

func scanBatch(row rowScanner) (*model.Batch, error) {
	var batch model.Batch
	var batchType, status string
	var completedAt sql.NullTime

	err := row.Scan(&batch.ID, &batch.ParentBatchID, &batchType, &batch.FeedID, &batch.Market,
		&batch.ProductCount, &batch.SuccessCount, &batch.FailedCount, &batch.ProgressCurrent,
		&status, &batch.CreatedAt, &completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}

	batch.BatchType = model.BatchType(batchType)
	batch.Status = model.BatchStatus(status)
	if completedAt.Valid {
		batch.CompletedAt = &completedAt.Time
	}
	return &batch, nil
}

func (s *SQLiteStore) queryBatches(ctx context.Context, query string, args ...interface{}) ([]*model.Batch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []*model.Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// ListOpenBatches returns batches not yet in a terminal state.
func (s *SQLiteStore) ListOpenBatches(ctx context.Context) ([]*model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBatches(ctx, batchSelect+` WHERE status IN (?, ?) ORDER BY created_at`,
		string(model.BatchStatusSubmitted), string(model.BatchStatusProcessing))
}

// ListChildBatches returns the chunks of a master batch.
func (s *SQLiteStore) ListChildBatches(ctx context.Context, parentID string) ([]*model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBatches(ctx, batchSelect+` WHERE parent_batch_id = ? ORDER BY created_at`, parentID)
}

// UpdateBatchResult writes rolled-up counts and status for a batch.
func (s *SQLiteStore) UpdateBatchResult(ctx context.Context, id string, successCount, failedCount, progressCurrent int, status model.BatchStatus, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE batches SET success_count = ?, failed_count = ?, progress_current = ?, status = ?, completed_at = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, successCount, failedCount, progressCurrent, string(status), completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update batch result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBatchItems records the products of a batch.
func (s *SQLiteStore) CreateBatchItems(ctx context.Context, items []model.BatchItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO batch_items (batch_id, product_id, sku, status, error_message)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx, item.BatchID, item.ProductID, item.SKU, string(item.Status), item.ErrorMessage)
		if err != nil {
			return fmt.Errorf("failed to insert batch item %s: %w", item.SKU, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListBatchItems returns all items of a batch.
func (s *SQLiteStore) ListBatchItems(ctx context.Context, batchID string) ([]*model.BatchItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT batch_id, product_id, sku, status, error_message, processed_at
		FROM batch_items WHERE batch_id = ? ORDER BY sku`

	rows, err := s.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch items: %w", err)
	}
	defer rows.Close()

	var items []*model.BatchItem
	for rows.Next() {
		var item model.BatchItem
		var status string
		var processedAt sql.NullTime

		if err := rows.Scan(&item.BatchID, &item.ProductID, &item.SKU, &status, &item.ErrorMessage, &processedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch item: %w", err)
		}
		item.Status = model.ItemStatus(status)
		if processedAt.Valid {
			item.ProcessedAt = &processedAt.Time
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// UpdateBatchItem writes one item's reconciled status. processed_at is
// stamped when the item reaches SUCCESS or ERROR.
func (s *SQLiteStore) UpdateBatchItem(ctx context.Context, batchID, sku string, status model.ItemStatus, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	terminal := status == model.ItemStatusSuccess || status == model.ItemStatusError

	query := `
		UPDATE batch_items SET
			status = ?,
			error_message = ?,
			processed_at = CASE WHEN ? THEN COALESCE(processed_at, ?) ELSE processed_at END
		WHERE batch_id = ? AND sku = ?`

	_, err := s.db.ExecContext(ctx, query, string(status), errorMessage, terminal, time.Now().UTC(), batchID, sku)
	if err != nil {
		return fmt.Errorf("failed to update batch item: %w", err)
	}
	return nil
}

// CountFeedsByStatus returns feed counts keyed by status.
func (s *SQLiteStore) CountFeedsByStatus(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.countByStatus(ctx, `SELECT status, COUNT(*) FROM feeds GROUP BY status`)
}

func (s *SQLiteStore) countByStatus(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// UpsertSyncStatus inserts or replaces an inventory sync row.
// Last-writer-wins on (product_id, sku) is the documented resolution for
// a scheduled retry racing a fresh sync.
func (s *SQLiteStore) UpsertSyncStatus(ctx context.Context, st *model.InventorySyncStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO inventory_sync_status (product_id, sku, market, status, quantity, retry_count, last_sync_time, response_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, sku) DO UPDATE SET
			market = excluded.market,
			status = excluded.status,
			quantity = excluded.quantity,
			retry_count = excluded.retry_count,
			last_sync_time = excluded.last_sync_time,
			response_data = excluded.response_data`

	_, err := s.db.ExecContext(ctx, query,
		st.ProductID, st.SKU, st.Market, string(st.Status), st.Quantity,
		st.RetryCount, st.LastSyncTime, string(st.ResponseData))
	if err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	return nil
}

const syncStatusSelect = `
	SELECT product_id, sku, market, status, quantity, retry_count, last_sync_time, response_data
	FROM inventory_sync_status`

func scanSyncStatus(row rowScanner) (*model.InventorySyncStatus, error) {
	var st model.InventorySyncStatus
	var status string
	var resp sql.NullString

	err := row.Scan(&st.ProductID, &st.SKU, &st.Market, &status, &st.Quantity, &st.RetryCount, &st.LastSyncTime, &resp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan sync status: %w", err)
	}

	st.Status = model.SyncStatus(status)
	if resp.Valid {
		st.ResponseData = []byte(resp.String)
	}
	return &st, nil
}

// GetSyncStatus retrieves a row by its compound key.
func (s *SQLiteStore) GetSyncStatus(ctx context.Context, productID int64, sku string) (*model.InventorySyncStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanSyncStatus(s.db.QueryRowContext(ctx, syncStatusSelect+` WHERE product_id = ? AND sku = ?`, productID, sku))
}

// GetSyncStatusBySKU retrieves the row for a SKU.
func (s *SQLiteStore) GetSyncStatusBySKU(ctx context.Context, sku string) (*model.InventorySyncStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanSyncStatus(s.db.QueryRowContext(ctx, syncStatusSelect+` WHERE sku = ? LIMIT 1`, sku))
}

// ListRetryable returns FAILED rows below the retry cap whose last sync
// is older than the cutoff.
func (s *SQLiteStore) ListRetryable(ctx context.Context, maxRetries int, cutoff time.Time) ([]*model.InventorySyncStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := syncStatusSelect + ` WHERE status = ? AND retry_count < ? AND last_sync_time < ? ORDER BY last_sync_time`

	rows, err := s.db.QueryContext(ctx, query, string(model.SyncStatusFailed), maxRetries, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable rows: %w", err)
	}
	defer rows.Close()

	var result []*model.InventorySyncStatus
	for rows.Next() {
		st, err := scanSyncStatus(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

// MarkRetrying flips a row to RETRYING before it is re-driven.
func (s *SQLiteStore) MarkRetrying(ctx context.Context, productID int64, sku string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE inventory_sync_status SET status = ? WHERE product_id = ? AND sku = ?`
	_, err := s.db.ExecContext(ctx, query, string(model.SyncStatusRetrying), productID, sku)
	if err != nil {
		return fmt.Errorf("failed to mark row retrying: %w", err)
	}
	return nil
}

// CountSyncByStatus returns inventory sync counts keyed by status.
func (s *SQLiteStore) CountSyncByStatus(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.countByStatus(ctx, `SELECT status, COUNT(*) FROM inventory_sync_status GROUP BY status`)
}

// AllocateIdentifier assigns the first unused code to the product.
// Idempotent: an existing binding is returned without consuming an entry.
func (s *SQLiteStore) AllocateIdentifier(ctx context.Context, productID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT code FROM identifier_pool WHERE product_id = ? AND is_used = 1 LIMIT 1`, productID).Scan(&code)
	if err == nil {
		return code, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to check existing binding: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, code FROM identifier_pool WHERE is_used = 0 ORDER BY id LIMIT 1`).Scan(&id, &code)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrPoolExhausted
		}
		return "", fmt.Errorf("failed to find unused identifier: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE identifier_pool SET is_used = 1, product_id = ?, used_at = ? WHERE id = ? AND is_used = 0`,
		productID, time.Now().UTC(), id)
	if err != nil {
		return "", fmt.Errorf("failed to bind identifier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("identifier %s was taken concurrently", code)
	}

	return code, nil
}

// BindIdentifier forces a code to be marked used and bound to the product.
func (s *SQLiteStore) BindIdentifier(ctx context.Context, code string, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE identifier_pool SET is_used = 1, product_id = ?, used_at = COALESCE(used_at, ?) WHERE code = ?`,
		productID, time.Now().UTC(), code)
	if err != nil {
		return fmt.Errorf("failed to bind identifier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseIdentifier explicitly returns a code to the pool.
func (s *SQLiteStore) ReleaseIdentifier(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE identifier_pool SET is_used = 0, product_id = 0, used_at = NULL WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to release identifier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetIdentifierEntry retrieves a pool entry by code.
func (s *SQLiteStore) GetIdentifierEntry(ctx context.Context, code string) (*model.IdentifierPoolEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry model.IdentifierPoolEntry
	var usedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, is_used, product_id, used_at FROM identifier_pool WHERE code = ?`, code).
		Scan(&entry.ID, &entry.Code, &entry.IsUsed, &entry.ProductID, &usedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pool entry: %w", err)
	}
	if usedAt.Valid {
		entry.UsedAt = &usedAt.Time
	}
	return &entry, nil
}

// LoadIdentifiers bulk-loads codes into the pool, skipping duplicates.
func (s *SQLiteStore) LoadIdentifiers(ctx context.Context, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO identifier_pool (code) VALUES (?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var loaded int64
	for _, code := range codes {
		res, err := stmt.ExecContext(ctx, code)
		if err != nil {
			return 0, fmt.Errorf("failed to load identifier %s: %w", code, err)
		}
		n, _ := res.RowsAffected()
		loaded += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return loaded, nil
}

// CountUnusedIdentifiers returns how many codes remain allocatable.
func (s *SQLiteStore) CountUnusedIdentifiers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identifier_pool WHERE is_used = 0`).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
