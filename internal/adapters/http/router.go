// Package httpadapter exposes the pipeline over HTTP. Owner identity arrives
// as owner_id (query param or form/JSON field); there is no auth layer.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/academica/gradeflow/internal/core/domain"
	"github.com/academica/gradeflow/internal/core/ports"
	"github.com/academica/gradeflow/internal/observability/metrics"
)

const serviceName = "api"

// maxUploadBytes caps multipart uploads; syllabi and grade reports are small.
const maxUploadBytes = 32 << 20

type Router struct {
	ingestor    ports.DocumentIngestor
	documents   ports.DocumentReader
	models      ports.CourseModelRepository
	mergeSvc    ports.CourseMergeService
	predictions ports.PredictionService
	exporter    ports.ReportExporter
	metrics     *metrics.HTTPServerMetrics
	traffic     TrafficConfig
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	documents ports.DocumentReader,
	models ports.CourseModelRepository,
	mergeSvc ports.CourseMergeService,
	predictions ports.PredictionService,
	exporter ports.ReportExporter,
	serverMetrics *metrics.HTTPServerMetrics,
	traffic TrafficConfig,
) *Router {
	return &Router{
		ingestor:    ingestor,
		documents:   documents,
		models:      models,
		mergeSvc:    mergeSvc,
		predictions: predictions,
		exporter:    exporter,
		metrics:     serverMetrics,
		traffic:     traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentSubtree)
	mux.HandleFunc("/v1/course/merge", rt.mergeCourse)
	mux.HandleFunc("/v1/course/report.xlsx", rt.exportReport)
	mux.HandleFunc("/v1/course", rt.getCourse)
	mux.HandleFunc("/v1/predictions/latest", rt.latestPrediction)
	mux.HandleFunc("/v1/predictions", rt.createPrediction)
	mux.HandleFunc("/v1/training-data", rt.addTrainingRow)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	handler = backpressureMiddleware(handler, rt.traffic.MaxConcurrent, rt.traffic.QueueWait)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	ownerID := strings.TrimSpace(r.FormValue("owner_id"))
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}
	docType, err := domain.ParseDocumentType(strings.TrimSpace(r.FormValue("type")))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	doc, created, err := rt.ingestor.Upload(r.Context(), ownerID, docType, fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	writeJSON(w, status, doc)
}

// documentSubtree dispatches /v1/documents/{id} and
// /v1/documents/{id}/process.
func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id, ok := strings.CutSuffix(rest, "/process"); ok {
		rt.reprocessDocument(w, r, id)
		return
	}
	rt.getDocumentByID(w, r, rest)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}
	ownerID, ok := ownerFromQuery(w, r)
	if !ok {
		return
	}

	doc, err := rt.documents.GetByID(r.Context(), ownerID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// reprocessDocument re-queues a document so an error/extract_only record can
// be retried without re-uploading the file.
func (rt *Router) reprocessDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}

	doc, err := rt.ingestor.Reprocess(r.Context(), req.OwnerID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) mergeCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}

	model, err := rt.mergeSvc.MergeForOwner(r.Context(), req.OwnerID)
	if rt.metrics != nil {
		rt.metrics.RecordMerge(serviceName, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (rt *Router) getCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	ownerID, ok := ownerFromQuery(w, r)
	if !ok {
		return
	}

	model, err := rt.models.Get(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (rt *Router) createPrediction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}

	start := time.Now()
	prediction, err := rt.predictions.Predict(r.Context(), req.OwnerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		source, confidence := predictionLabels(prediction)
		rt.metrics.RecordPrediction(serviceName, source, confidence, time.Since(start))
	}
	writeJSON(w, http.StatusCreated, prediction)
}

// predictionLabels reports which estimate ended up as the headline grade.
func predictionLabels(p *domain.Prediction) (source, confidence string) {
	switch {
	case p.Combined != nil:
		return "combined", string(p.Combined.Confidence)
	case p.AIPrediction != nil:
		return "llm", ""
	case p.MLPrediction != nil:
		return "ml", ""
	default:
		return "deterministic", ""
	}
}

func (rt *Router) latestPrediction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	ownerID, ok := ownerFromQuery(w, r)
	if !ok {
		return
	}

	prediction, err := rt.predictions.Latest(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

func (rt *Router) addTrainingRow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var row domain.TrainingRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := rt.predictions.AddTrainingRow(r.Context(), row); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (rt *Router) exportReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	ownerID, ok := ownerFromQuery(w, r)
	if !ok {
		return
	}

	payload, err := rt.exporter.ExportGradeReport(r.Context(), ownerID)
	if rt.metrics != nil {
		rt.metrics.RecordExport(serviceName, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="grade-report.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func ownerFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id query parameter is required"})
		return "", false
	}
	return ownerID, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
