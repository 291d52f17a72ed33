package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/merge"
	"github.com/academica/gradeflow/internal/core/ports"
)

// fakeDocRepo enforces the (owner, path) unique index the way the database
// does; findMisses makes FindByOwnerAndPath report not-found that many times
// so tests can stage a lost duplicate-check race.
type fakeDocRepo struct {
	docs        map[string]domain.Document
	batchIDs    []string
	batchStatus domain.DocumentStatus
	batchCalls  int
	findMisses  int
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[string]domain.Document{}}
}

func (r *fakeDocRepo) Create(_ context.Context, doc *domain.Document) error {
	for _, existing := range r.docs {
		if existing.OwnerID == doc.OwnerID && existing.FilePath == doc.FilePath {
			return domain.WrapError(domain.ErrDocumentExists, "insert document", fmt.Errorf("path %s", doc.FilePath))
		}
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeDocRepo) GetByID(_ context.Context, ownerID, id string) (*domain.Document, error) {
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
	}
	out := doc
	return &out, nil
}

func (r *fakeDocRepo) FindByOwnerAndPath(_ context.Context, ownerID, filePath string) (*domain.Document, error) {
	if r.findMisses > 0 {
		r.findMisses--
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document", fmt.Errorf("path %s", filePath))
	}
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID && doc.FilePath == filePath {
			out := doc
			return &out, nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document", fmt.Errorf("path %s", filePath))
}

func (r *fakeDocRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) Update(_ context.Context, doc *domain.Document) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id %s", doc.ID))
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeDocRepo) UpdateStatusBatch(_ context.Context, ownerID string, ids []string, status domain.DocumentStatus, processedAt time.Time) error {
	r.batchCalls++
	r.batchIDs = append([]string{}, ids...)
	r.batchStatus = status
	for _, id := range ids {
		doc, ok := r.docs[id]
		if !ok || doc.OwnerID != ownerID {
			return domain.WrapError(domain.ErrDocumentNotFound, "batch update", fmt.Errorf("id %s", id))
		}
		doc.Status = status
		doc.ProcessedAt = &processedAt
		r.docs[id] = doc
	}
	return nil
}

// fakeModelRepo implements compare-and-swap; conflicts injects that many
// rejected saves, each simulating a concurrent writer bumping the version.
type fakeModelRepo struct {
	model     *domain.CanonicalCourseModel
	version   int64
	conflicts int
	saves     int
}

func (r *fakeModelRepo) Get(_ context.Context, ownerID string) (*domain.CanonicalCourseModel, error) {
	if r.model == nil {
		return nil, domain.WrapError(domain.ErrCourseModelNotFound, "get course model", fmt.Errorf("owner %s", ownerID))
	}
	out := *r.model
	out.Version = r.version
	return &out, nil
}

func (r *fakeModelRepo) Save(_ context.Context, ownerID string, model *domain.CanonicalCourseModel, expectedVersion int64) error {
	if r.conflicts > 0 {
		r.conflicts--
		r.version++
		if r.model == nil {
			r.model = &domain.CanonicalCourseModel{}
		}
		return domain.WrapError(domain.ErrVersionConflict, "save course model", fmt.Errorf("owner %s", ownerID))
	}
	if expectedVersion != r.version {
		return domain.WrapError(domain.ErrVersionConflict, "save course model", fmt.Errorf("owner %s", ownerID))
	}
	out := *model
	r.model = &out
	r.version = model.Version
	r.saves++
	return nil
}

type fakeStorage struct {
	saved map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string][]byte{}}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.saved[key] = raw
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeQueue struct {
	published [][2]string
}

func (q *fakeQueue) PublishDocumentUploaded(_ context.Context, ownerID, documentID string) error {
	q.published = append(q.published, [2]string{ownerID, documentID})
	return nil
}

func (q *fakeQueue) SubscribeDocumentUploaded(context.Context, func(context.Context, string, string) error) error {
	return nil
}

type fakeExtractor struct {
	result ports.ExtractedText
	err    error
}

func (e *fakeExtractor) Extract(context.Context, *domain.Document) (ports.ExtractedText, error) {
	return e.result, e.err
}

type fakeNormalizer struct {
	syllabus      *domain.SyllabusData
	syllabusErr   error
	grades        *domain.GradesData
	gradesErr     error
	transcript    *domain.TranscriptData
	transcriptErr error

	gradeCategories []string
}

func (n *fakeNormalizer) NormalizeSyllabus(context.Context, string) (*domain.SyllabusData, error) {
	return n.syllabus, n.syllabusErr
}

func (n *fakeNormalizer) NormalizeGrades(_ context.Context, _ string, categories []string) (*domain.GradesData, error) {
	n.gradeCategories = categories
	return n.grades, n.gradesErr
}

func (n *fakeNormalizer) NormalizeTranscript(context.Context, string) (*domain.TranscriptData, error) {
	return n.transcript, n.transcriptErr
}

// fakeMerger is the LLM-assisted merge capability.
type fakeMerger struct {
	model *domain.CanonicalCourseModel
	err   error
}

func (m *fakeMerger) Merge(context.Context, merge.Inputs) (*domain.CanonicalCourseModel, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := *m.model
	return &out, nil
}

// fakeMergeService stands in for the whole merge use case.
type fakeMergeService struct {
	model     *domain.CanonicalCourseModel
	err       error
	calls     int
	lastOwner string
}

func (m *fakeMergeService) MergeForOwner(_ context.Context, ownerID string) (*domain.CanonicalCourseModel, error) {
	m.calls++
	m.lastOwner = ownerID
	return m.model, m.err
}

type fakePredictor struct {
	ai    *domain.AIPrediction
	err   error
	calls int
}

func (p *fakePredictor) PredictFinalGrade(context.Context, *domain.CanonicalCourseModel, domain.GradeCalculation) (*domain.AIPrediction, error) {
	p.calls++
	return p.ai, p.err
}

type fakePredictionRepo struct {
	created []*domain.Prediction
}

func (r *fakePredictionRepo) Create(_ context.Context, prediction *domain.Prediction) error {
	r.created = append(r.created, prediction)
	return nil
}

func (r *fakePredictionRepo) Latest(_ context.Context, ownerID string) (*domain.Prediction, error) {
	if len(r.created) == 0 {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "latest prediction", fmt.Errorf("owner %s", ownerID))
	}
	return r.created[len(r.created)-1], nil
}

type fakeTrainingRepo struct {
	rows    []domain.TrainingRow
	listErr error
}

func (r *fakeTrainingRepo) List(context.Context) ([]domain.TrainingRow, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.rows, nil
}

func (r *fakeTrainingRepo) Add(_ context.Context, row domain.TrainingRow) error {
	r.rows = append(r.rows, row)
	return nil
}
