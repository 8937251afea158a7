package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/models"
)

// ConnectRequest carries the connection string for a target database.
type ConnectRequest struct {
	ConnectionString string `json:"connection_string"`
}

// ConnectResponse returns the connection identity and the discovered
// schema snapshot.
type ConnectResponse struct {
	Fingerprint string                    `json:"fingerprint"`
	Schemas     []models.SchemaDescriptor `json:"schemas"`
}

// ConnectHandler opens (or reuses) a target connection and discovers its
// schemas.
type ConnectHandler struct {
	manager *datasource.Manager
	logger  *zap.Logger
}

// NewConnectHandler creates a new ConnectHandler.
func NewConnectHandler(manager *datasource.Manager, logger *zap.Logger) *ConnectHandler {
	return &ConnectHandler{manager: manager, logger: logger}
}

// RegisterRoutes registers the connect handler's routes on the given mux.
func (h *ConnectHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/connect", h.Connect)
}

// Connect handles POST /api/connect requests.
func (h *ConnectHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
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

	schemas, err := conn.Discover(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.logger.Info("connected",
		zap.String("fingerprint", fingerprint),
		zap.Int("schemas", len(schemas)))

	_ = WriteJSON(w, http.StatusOK, ConnectResponse{
		Fingerprint: fingerprint,
		Schemas:     schemas,
	})
}
