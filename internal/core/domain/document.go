package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type DocumentType string

const (
	TypeSyllabus   DocumentType = "syllabus"
	TypeGrades     DocumentType = "grades"
	TypeTranscript DocumentType = "transcript"
	TypeOther      DocumentType = "other"
)

func ParseDocumentType(raw string) (DocumentType, error) {
	switch DocumentType(raw) {
	case TypeSyllabus, TypeGrades, TypeTranscript, TypeOther:
		return DocumentType(raw), nil
	default:
		return "", fmt.Errorf("unknown document type: %q", raw)
	}
}

type DocumentStatus string

const (
	StatusUploaded    DocumentStatus = "uploaded"
	StatusExtracted   DocumentStatus = "extracted"
	StatusProcessed   DocumentStatus = "processed"
	StatusExtractOnly DocumentStatus = "extract_only"
	StatusError       DocumentStatus = "error"
)

type Document struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Type            DocumentType    `json:"type"`
	FilePath        string          `json:"file_path"`
	RawText         string          `json:"raw_text,omitempty"`
	PageCount       int             `json:"page_count,omitempty"`
	Status          DocumentStatus  `json:"status"`
	StructuredData  json.RawMessage `json:"structured_data,omitempty"`
	Error           string          `json:"error,omitempty"`
	UploadedAt      time.Time       `json:"uploaded_at"`
	LastExtractedAt *time.Time      `json:"last_extracted_at,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type EventKind string

const (
	EventExtractSucceeded   EventKind = "extract_succeeded"
	EventExtractFailed      EventKind = "extract_failed"
	EventNormalizeSucceeded EventKind = "normalize_succeeded"
	EventNormalizeFailed    EventKind = "normalize_failed"
)

// Event carries a pipeline outcome into the document state machine.
type Event struct {
	Kind      EventKind
	Text      string
	PageCount int
	Data      json.RawMessage
	Err       error
}

// allowedTransitions encodes the status machine. Error and extract_only are
// retryable, and a processed document may be re-run from scratch, so
// extraction events are accepted from every status: a retried extraction
// re-attempts the same transition and a retried failure is re-recorded.
var allowedTransitions = map[EventKind]map[DocumentStatus]DocumentStatus{
	EventExtractSucceeded: {
		StatusUploaded:    StatusExtracted,
		StatusExtracted:   StatusExtracted,
		StatusExtractOnly: StatusExtracted,
		StatusError:       StatusExtracted,
		StatusProcessed:   StatusExtracted,
	},
	EventExtractFailed: {
		StatusUploaded:    StatusError,
		StatusExtracted:   StatusError,
		StatusExtractOnly: StatusError,
		StatusProcessed:   StatusError,
		StatusError:       StatusError,
	},
	EventNormalizeSucceeded: {
		StatusExtracted:   StatusProcessed,
		StatusExtractOnly: StatusProcessed,
		StatusProcessed:   StatusProcessed,
	},
	EventNormalizeFailed: {
		StatusExtracted:   StatusExtractOnly,
		StatusExtractOnly: StatusExtractOnly,
	},
}

// Advance applies an event to the document, mutating status together with the
// fields the event carries. Illegal transitions are rejected without mutating
// anything.
func (d *Document) Advance(ev Event, now time.Time) error {
	next, ok := allowedTransitions[ev.Kind][d.Status]
	if !ok {
		return WrapError(ErrInvalidInput, "advance document status",
			fmt.Errorf("illegal transition %s from status %s", ev.Kind, d.Status))
	}

	switch ev.Kind {
	case EventExtractSucceeded:
		d.RawText = ev.Text
		d.PageCount = ev.PageCount
		d.Error = ""
		extractedAt := now
		d.LastExtractedAt = &extractedAt
	case EventExtractFailed:
		if ev.Err != nil {
			d.Error = ev.Err.Error()
		}
	case EventNormalizeSucceeded:
		d.StructuredData = ev.Data
		d.Error = ""
		processedAt := now
		d.ProcessedAt = &processedAt
	case EventNormalizeFailed:
		if ev.Err != nil {
			d.Error = ev.Err.Error()
		}
		d.StructuredData = nil
	}

	d.Status = next
	d.UpdatedAt = now
	return nil
}
