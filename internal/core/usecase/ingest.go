package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the file and creates the document record in status=uploaded.
// Re-uploading the same (owner, file path) returns the existing record; when
// that record is stuck in a retryable status the upload event is re-published
// so the pipeline gets another attempt at it.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	ownerID string,
	docType domain.DocumentType,
	filename string,
	body io.Reader,
) (*domain.Document, bool, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, false, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("owner id is required"))
	}

	filePath := fmt.Sprintf("%s/%s/%s", ownerID, docType, sanitizeFilename(filename))

	if existing, err := uc.repo.FindByOwnerAndPath(ctx, ownerID, filePath); err == nil && existing != nil {
		if retryableStatus(existing.Status) {
			if err := uc.queue.PublishDocumentUploaded(ctx, ownerID, existing.ID); err != nil {
				return nil, false, fmt.Errorf("publish retry event: %w", err)
			}
		}
		return existing, false, nil
	} else if err != nil && !domain.IsKind(err, domain.ErrDocumentNotFound) {
		return nil, false, fmt.Errorf("check duplicate upload: %w", err)
	}

	if err := uc.storage.Save(ctx, filePath, body); err != nil {
		return nil, false, fmt.Errorf("save to object storage: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Type:       docType,
		FilePath:   filePath,
		Status:     domain.StatusUploaded,
		UploadedAt: now,
		UpdatedAt:  now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		// A concurrent upload of the same (owner, path) can win the insert
		// between the duplicate check and here; the unique index turns the
		// loser into a read of the winner's record.
		if domain.IsKind(err, domain.ErrDocumentExists) {
			existing, findErr := uc.repo.FindByOwnerAndPath(ctx, ownerID, filePath)
			if findErr != nil {
				return nil, false, fmt.Errorf("load concurrent duplicate: %w", findErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishDocumentUploaded(ctx, ownerID, doc.ID); err != nil {
		return nil, false, fmt.Errorf("publish upload event: %w", err)
	}

	return doc, true, nil
}

// Reprocess re-queues an existing document through the extract/normalize
// pipeline by re-publishing its upload event.
func (uc *IngestDocumentUseCase) Reprocess(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if err := uc.queue.PublishDocumentUploaded(ctx, ownerID, doc.ID); err != nil {
		return nil, fmt.Errorf("publish reprocess event: %w", err)
	}
	return doc, nil
}

// retryableStatus reports whether a document in this status is waiting on a
// new pipeline attempt rather than holding a finished result.
func retryableStatus(status domain.DocumentStatus) bool {
	return status == domain.StatusError || status == domain.StatusExtractOnly
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.pdf"
	}
	return base
}
