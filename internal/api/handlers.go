package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/models"
	"liquiditymining/internal/service"
)

const version = "1.0.0"

// PoolReader reads the live parameters of a staking pool
type PoolReader interface {
	PoolStatus(ctx context.Context, address common.Address) (*evm.PoolStatus, error)
}

// ChainPoolReader reads staking pools from the fork
type ChainPoolReader struct {
	client *evm.Client
	logger *zap.Logger
}

// NewChainPoolReader creates a pool reader backed by client
func NewChainPoolReader(client *evm.Client, logger *zap.Logger) *ChainPoolReader {
	return &ChainPoolReader{client: client, logger: logger}
}

func (r *ChainPoolReader) PoolStatus(ctx context.Context, address common.Address) (*evm.PoolStatus, error) {
	pool, err := evm.NewStakingRewards(r.client, address, r.logger)
	if err != nil {
		return nil, err
	}
	return pool.Status(ctx)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	runs   *service.RunService
	pools  PoolReader
	logger *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(runs *service.RunService, pools PoolReader, logger *zap.Logger) *Handler {
	return &Handler{
		runs:   runs,
		pools:  pools,
		logger: logger,
	}
}

// ==================== Health Check ====================

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Version: version,
	}
	h.respondJSON(w, http.StatusOK, response)
}

// ==================== Runs ====================

// HandleCreateRun handles POST /api/v1/runs
// Queues a rehearsal of the requested cases
func (h *Handler) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("Failed to decode request", zap.Error(err))
		h.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	run, err := h.runs.Enqueue(r.Context(), req.Cases)
	if errors.Is(err, service.ErrUnknownCase) {
		h.respondError(w, http.StatusBadRequest, "Unknown case", err)
		return
	}
	if err != nil {
		h.logger.Error("Failed to queue run", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue run", err)
		return
	}

	h.respondJSON(w, http.StatusAccepted, RunResponse{Run: run, Cases: []models.CaseResult{}})
}

// HandleListRuns handles GET /api/v1/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	// Parse pagination parameters (optional)
	limit := 0 // service default
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	page, err := h.runs.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list runs", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	h.respondJSON(w, http.StatusOK, ListRunsResponse{Runs: page.Runs, Limit: page.Limit, Offset: page.Offset})
}

// HandleGetRun handles GET /api/v1/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run id", err)
		return
	}

	detail, err := h.runs.Get(r.Context(), id)
	if errors.Is(err, service.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	if err != nil {
		h.logger.Error("Failed to get run", zap.Int64("run_id", id), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}

	h.respondJSON(w, http.StatusOK, RunResponse{Run: detail.Run, Cases: detail.Cases})
}

// ==================== Pools ====================

// HandleGetPool handles GET /api/v1/pools/{address}
// Reads the live parameters of a staking pool from the fork
func (h *Handler) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid pool address", nil)
		return
	}

	status, err := h.pools.PoolStatus(r.Context(), common.HexToAddress(address))
	if err != nil {
		h.logger.Error("Failed to read pool", zap.String("pool", address), zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "Failed to read pool", err)
		return
	}

	perDay := new(big.Int).Mul(status.RewardRate, big.NewInt(int64(service.Day/time.Second)))

	response := PoolStatusResponse{
		Address:          status.Address.Hex(),
		Owner:            status.Owner.Hex(),
		RewardsToken:     status.RewardsToken.Hex(),
		StakingToken:     status.StakingToken.Hex(),
		PeriodFinish:     status.PeriodFinish,
		PeriodFinishTime: time.Unix(int64(status.PeriodFinish), 0).UTC().Format(time.RFC3339),
		RewardRate:       status.RewardRate.String(),
		RewardsPerDay:    service.FormatEther(perDay),
		TotalStaked:      service.FormatEther(status.TotalSupply),
	}

	h.respondJSON(w, http.StatusOK, response)
}

// ==================== Helper Functions ====================

// respondJSON sends a JSON response
func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written
		h.logger.Error("Failed to encode JSON response",
			zap.Int("status", statusCode),
			zap.Error(err))
	}
}

// respondError sends an error response
func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = fmt.Sprintf("%s: %v", message, err)
	}

	response := ErrorResponse{
		Error:   message,
		Message: errorMsg,
	}

	h.respondJSON(w, statusCode, response)
}
