// Package postgres persists documents, the canonical course model,
// predictions, and regression training data. Schema bootstrap runs under an
// advisory lock so concurrent api/worker startups do not race on DDL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/academica/gradeflow/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	doc_type TEXT NOT NULL,
	file_path TEXT NOT NULL,
	raw_text TEXT NOT NULL DEFAULT '',
	page_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	structured_data JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	uploaded_at TIMESTAMPTZ NOT NULL,
	last_extracted_at TIMESTAMPTZ,
	processed_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (owner_id, file_path)
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id, uploaded_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS course_models (
	owner_id TEXT PRIMARY KEY,
	model JSONB NOT NULL,
	version BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_owner ON predictions(owner_id, created_at DESC);

CREATE TABLE IF NOT EXISTS training_rows (
	id BIGSERIAL PRIMARY KEY,
	previous_grades JSONB NOT NULL,
	gpa DOUBLE PRECISION NOT NULL,
	assignment_weight DOUBLE PRECISION NOT NULL,
	exam_weight DOUBLE PRECISION NOT NULL,
	final_grade DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, owner_id, doc_type, file_path, raw_text, page_count, status, structured_data, error_message, uploaded_at, last_extracted_at, processed_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		doc.ID, doc.OwnerID, string(doc.Type), doc.FilePath, doc.RawText, doc.PageCount,
		string(doc.Status), nullableJSON(doc.StructuredData), doc.Error,
		doc.UploadedAt, doc.LastExtractedAt, doc.ProcessedAt, doc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 is the SQLSTATE for a unique violation; the (owner_id,
		// file_path) index turns concurrent duplicate inserts into this.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.WrapError(domain.ErrDocumentExists, "insert document",
				fmt.Errorf("path %s", doc.FilePath))
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1 AND id = $2
`, ownerID, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document",
				fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) FindByOwnerAndPath(ctx context.Context, ownerID, filePath string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1 AND file_path = $2
`, ownerID, filePath)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document by path",
				fmt.Errorf("path %s", filePath))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1
ORDER BY uploaded_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET raw_text = $3, page_count = $4, status = $5, structured_data = $6,
    error_message = $7, last_extracted_at = $8, processed_at = $9, updated_at = $10
WHERE owner_id = $1 AND id = $2
`,
		doc.OwnerID, doc.ID, doc.RawText, doc.PageCount, string(doc.Status),
		nullableJSON(doc.StructuredData), doc.Error, doc.LastExtractedAt, doc.ProcessedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document",
			fmt.Errorf("id %s", doc.ID))
	}
	return nil
}

// UpdateStatusBatch transitions every listed document in one transaction. If
// any document is missing the transaction rolls back and no status changes.
func (r *DocumentRepository) UpdateStatusBatch(ctx context.Context, ownerID string, ids []string, status domain.DocumentStatus, processedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `
UPDATE documents
SET status = $3, processed_at = $4, updated_at = $4
WHERE owner_id = $1 AND id = $2
`, ownerID, id, string(status), processedAt)
		if err != nil {
			return fmt.Errorf("batch update document %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("batch update rows affected: %w", err)
		}
		if affected == 0 {
			return domain.WrapError(domain.ErrDocumentNotFound, "batch update status",
				fmt.Errorf("id %s", id))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, status string
	var structured []byte

	err := row.Scan(
		&doc.ID, &doc.OwnerID, &docType, &doc.FilePath, &doc.RawText, &doc.PageCount,
		&status, &structured, &doc.Error,
		&doc.UploadedAt, &doc.LastExtractedAt, &doc.ProcessedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.DocumentStatus(status)
	if len(structured) > 0 {
		doc.StructuredData = structured
	}
	return &doc, nil
}

// nullableJSON keeps empty payloads as SQL NULL instead of invalid ''::jsonb.
func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return []byte(data)
}
