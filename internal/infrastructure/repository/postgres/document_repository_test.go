package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/academica/gradeflow/internal/core/domain"
)

func newDocRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, owner_id, doc_type, file_path").
		WithArgs("owner-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "owner-1", "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateMapsUniqueViolationToDocumentExists(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "documents_owner_id_file_path_key"})

	doc := &domain.Document{
		ID:       "doc-loser",
		OwnerID:  "owner-1",
		Type:     domain.TypeGrades,
		FilePath: "owner-1/grades/report.pdf",
		Status:   domain.StatusUploaded,
	}
	err := repo.Create(context.Background(), doc)
	if !domain.IsKind(err, domain.ErrDocumentExists) {
		t.Fatalf("expected ErrDocumentExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreatePassesThroughOtherInsertErrors(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &domain.Document{ID: "doc-1", OwnerID: "owner-1"})
	if err == nil || domain.IsKind(err, domain.ErrDocumentExists) {
		t.Fatalf("expected a plain insert error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WillReturnResult(sqlmock.NewResult(0, 0))

	doc := &domain.Document{
		ID:      "missing",
		OwnerID: "owner-1",
		Status:  domain.StatusExtracted,
	}
	err := repo.Update(context.Background(), doc)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusBatchRollsBackOnMissingDocument(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs("owner-1", "doc-1", string(domain.StatusProcessed), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents").
		WithArgs("owner-1", "doc-2", string(domain.StatusProcessed), now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateStatusBatch(context.Background(), "owner-1", []string{"doc-1", "doc-2"}, domain.StatusProcessed, now)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusBatchCommitsWhenAllRowsMove(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs("owner-1", "doc-1", string(domain.StatusProcessed), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents").
		WithArgs("owner-1", "doc-2", string(domain.StatusProcessed), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpdateStatusBatch(context.Background(), "owner-1", []string{"doc-1", "doc-2"}, domain.StatusProcessed, now); err != nil {
		t.Fatalf("UpdateStatusBatch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
