package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/grading"
	"github.com/academica/gradeflow/internal/core/merge"
	"github.com/academica/gradeflow/internal/core/normalize"
)

// NormalizeSyllabus extracts course info, grade weights, and planned
// assignments from raw syllabus text.
func (c *Client) NormalizeSyllabus(ctx context.Context, text string) (*domain.SyllabusData, error) {
	system, user := buildSyllabusPrompt(text)
	raw, err := c.generateJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("normalize syllabus: %w", err)
	}
	data, err := normalize.ParseSyllabus(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize syllabus: %w", err)
	}
	return data, nil
}

// NormalizeGrades extracts completed and incomplete assignments from raw
// grade-report text. Known categories steer the model's bucketing.
func (c *Client) NormalizeGrades(ctx context.Context, text string, categories []string) (*domain.GradesData, error) {
	system, user := buildGradesPrompt(text, categories)
	raw, err := c.generateJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("normalize grades: %w", err)
	}
	data, err := normalize.ParseGrades(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize grades: %w", err)
	}
	return data, nil
}

// NormalizeTranscript extracts GPA and prior coursework from raw transcript
// text.
func (c *Client) NormalizeTranscript(ctx context.Context, text string) (*domain.TranscriptData, error) {
	system, user := buildTranscriptPrompt(text)
	raw, err := c.generateJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("normalize transcript: %w", err)
	}
	data, err := normalize.ParseTranscript(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize transcript: %w", err)
	}
	return data, nil
}

// Merge asks the model to reconcile the typed payloads into one course model.
// The response is only coerced here; the caller validates it and falls back
// to the deterministic merge on any problem.
func (c *Client) Merge(ctx context.Context, in merge.Inputs) (*domain.CanonicalCourseModel, error) {
	system, user := buildMergePrompt(in, encodeIndented)
	raw, err := c.generateJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("merge course model: %w", err)
	}
	model, err := normalize.ParseModel(raw)
	if err != nil {
		return nil, fmt.Errorf("merge course model: %w", err)
	}
	return model, nil
}

// PredictFinalGrade asks the model for a qualitative final-grade estimate
// given the deterministic calculation.
func (c *Client) PredictFinalGrade(ctx context.Context, model *domain.CanonicalCourseModel, calc domain.GradeCalculation) (*domain.AIPrediction, error) {
	system, user := buildPredictPrompt(model, calc)
	raw, err := c.generateJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("predict final grade: %w", err)
	}

	extracted, err := normalize.ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("predict final grade: %w", err)
	}
	var response struct {
		Grade          string          `json:"grade"`
		NumericalGrade json.RawMessage `json:"numerical_grade"`
		Reasoning      string          `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extracted), &response); err != nil {
		return nil, fmt.Errorf("predict final grade: decode response: %w", err)
	}

	prediction := &domain.AIPrediction{
		Grade:     response.Grade,
		Reasoning: response.Reasoning,
	}
	// Models sometimes return numerical_grade as a quoted string.
	var numeric float64
	if err := json.Unmarshal(response.NumericalGrade, &numeric); err == nil {
		prediction.NumericalGrade = numeric
	} else {
		var s string
		if err := json.Unmarshal(response.NumericalGrade, &s); err != nil {
			return nil, fmt.Errorf("predict final grade: numerical_grade %s is not a number", response.NumericalGrade)
		}
		if _, err := fmt.Sscanf(s, "%f", &numeric); err != nil {
			return nil, fmt.Errorf("predict final grade: numerical_grade %q is not a number", s)
		}
		prediction.NumericalGrade = numeric
	}
	if prediction.Grade == "" {
		prediction.Grade = grading.LetterGrade(prediction.NumericalGrade)
	}
	return prediction, nil
}

func encodeIndented(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
