package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"luch-agregator/logger"
	"luch-agregator/metrics"
	"luch-agregator/models"
)

// ErrAllocationConflict is returned when a unique document number could not be
// obtained after all retries
var ErrAllocationConflict = errors.New("document number allocation conflict")

// ErrDocumentLogNotFound is returned by AttachFile for an unknown log id
var ErrDocumentLogNotFound = errors.New("document log not found")

const maxAllocationAttempts = 5

// DocumentLogRepository is the append-only audit log and document number counter
type DocumentLogRepository struct {
	db  *sql.DB
	log *logger.Logger
}

// NewDocumentLogRepository creates a new DocumentLogRepository
func NewDocumentLogRepository(db *sql.DB, log *logger.Logger) *DocumentLogRepository {
	return &DocumentLogRepository{db: db, log: log.With("component", "DocumentLogRepository")}
}

// Ensure DocumentLogRepository implements DocumentLogRepositoryInterface
var _ DocumentLogRepositoryInterface = (*DocumentLogRepository)(nil)

// Allocate computes the next document number and inserts the audit row in one statement.
// The unique constraint on document_number rejects a concurrent duplicate; the insert is
// then retried with a fresh maximum.
func (r *DocumentLogRepository) Allocate(ctx context.Context, userID *int64, docType models.DocumentType) (*models.DocumentLog, error) {
	query := `
		INSERT INTO document_logs (user_id, document_type, document_number, created_at)
		SELECT $1, $2, COALESCE(MAX(document_number), 0) + 1, NOW()
		FROM document_logs
		RETURNING id, document_number, created_at
	`

	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		entry := &models.DocumentLog{UserID: userID, DocumentType: docType}
		err := r.db.QueryRowContext(ctx, query, uid, string(docType)).
			Scan(&entry.ID, &entry.DocumentNumber, &entry.CreatedAt)
		if err == nil {
			r.log.Info("✓ Document number allocated", "number", entry.DocumentNumber, "type", docType, "attempt", attempt)
			return entry, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			metrics.AllocationConflicts.Inc()
			r.log.Warn("⚠️  Document number taken concurrently, retrying", "attempt", attempt)
			continue
		}
		r.log.Error("❌ Error allocating document number", "error", err)
		return nil, fmt.Errorf("failed to allocate document number: %w", err)
	}

	r.log.Error("❌ Document number allocation gave up", "attempts", maxAllocationAttempts)
	return nil, fmt.Errorf("%w after %d attempts", ErrAllocationConflict, maxAllocationAttempts)
}

// AttachFile records where the generated document was archived
func (r *DocumentLogRepository) AttachFile(ctx context.Context, id int64, fileRef string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE document_logs SET file_ref = $1 WHERE id = $2`, fileRef, id)
	if err != nil {
		r.log.Error("❌ Error attaching file to document log", "id", id, "error", err)
		return fmt.Errorf("failed to attach file to document log %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrDocumentLogNotFound, id)
	}
	return nil
}

// List returns every log row, newest first
func (r *DocumentLogRepository) List(ctx context.Context) ([]models.DocumentLog, error) {
	query := `
		SELECT
			dl.id,
			dl.user_id,
			COALESCE(u.username, '') AS username,
			dl.created_at,
			dl.document_number,
			dl.document_type,
			COALESCE(dl.file_ref, '') AS file_ref
		FROM document_logs dl
		LEFT JOIN users u ON dl.user_id = u.id
		ORDER BY dl.created_at DESC, dl.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error("❌ Error querying document logs", "error", err)
		return nil, fmt.Errorf("failed to query document logs: %w", err)
	}
	defer rows.Close()

	logs := []models.DocumentLog{}
	for rows.Next() {
		var (
			entry   models.DocumentLog
			userID  sql.NullInt64
			docType string
		)
		if err := rows.Scan(
			&entry.ID,
			&userID,
			&entry.Username,
			&entry.CreatedAt,
			&entry.DocumentNumber,
			&docType,
			&entry.FileRef,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document log: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			entry.UserID = &id
		}
		entry.DocumentType = models.DocumentType(docType)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document logs: %w", err)
	}

	r.log.Debug("✓ Document logs listed", "count", len(logs))
	return logs, nil
}
