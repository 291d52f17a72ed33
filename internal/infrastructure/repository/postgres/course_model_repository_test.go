package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/academica/gradeflow/internal/core/domain"
)

func newModelRepoWithMock(t *testing.T) (*CourseModelRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &CourseModelRepository{db: db}, mock, func() { _ = db.Close() }
}

func testModel(version int64) *domain.CanonicalCourseModel {
	return &domain.CanonicalCourseModel{
		Course:       domain.CourseInfo{Name: "Algorithms", Instructor: "Dr. Chen"},
		GradeWeights: []domain.GradeWeight{{Name: "Homework", Weight: 0.4}, {Name: "Exams", Weight: 0.6}},
		Version:      version,
	}
}

func TestGetReturnsCourseModelNotFound(t *testing.T) {
	repo, mock, done := newModelRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT model, version").
		WithArgs("owner-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "owner-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrCourseModelNotFound) {
		t.Fatalf("expected ErrCourseModelNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveInsertConflictIsVersionConflict(t *testing.T) {
	repo, mock, done := newModelRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO course_models").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), "owner-1", testModel(1), 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveStaleVersionIsVersionConflict(t *testing.T) {
	repo, mock, done := newModelRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE course_models").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), "owner-1", testModel(3), 2)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveMatchingVersionSucceeds(t *testing.T) {
	repo, mock, done := newModelRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE course_models").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), "owner-1", testModel(3), 2); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
