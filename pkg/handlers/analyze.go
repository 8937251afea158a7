package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/services"
)

// AnalyzeRequest carries the connection string for the target to analyze.
type AnalyzeRequest struct {
	ConnectionString string `json:"connection_string"`
}

// AnalyzeHandler serves memoized table analyses.
type AnalyzeHandler struct {
	manager *datasource.Manager
	cache   *services.AnalysisCache
	logger  *zap.Logger
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(manager *datasource.Manager, cache *services.AnalysisCache, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{manager: manager, cache: cache, logger: logger}
}

// RegisterRoutes registers the analyze handler's routes on the given mux.
func (h *AnalyzeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analyze/{schema}/{item}", h.Analyze)
}

// Analyze handles POST /api/analyze/{schema}/{item}?force= requests.
// Repeated requests for the same item return the memoized result; force=true
// recomputes while keeping the previous result visible until the new one
// succeeds.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	schema := r.PathValue("schema")
	item := r.PathValue("item")
	if schema == "" || item == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "schema and item are required")
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ConnectionString == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "connection_string is required")
		return
	}

	conn, fingerprint, err := h.manager.GetOrConnect(r.Context(), req.ConnectionString)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	key := services.AnalysisKey{Fingerprint: fingerprint, Schema: schema, Item: item}
	result, err := h.cache.GetOrCompute(r.Context(), conn, key, force)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.logger.Info("analysis served",
		zap.String("fingerprint", fingerprint),
		zap.String("schema", schema),
		zap.String("item", item),
		zap.Bool("force", force))

	_ = WriteJSON(w, http.StatusOK, result)
}
