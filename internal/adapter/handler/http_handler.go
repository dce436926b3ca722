package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/rl1809/cached-inventory/internal/core/service"
	"github.com/rl1809/cached-inventory/internal/logging"
)

const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

type HTTPHandler struct {
	stock StockService
	log   logging.Logger
}

type StockHTTPRequest struct {
	ProductID int64 `json:"productId"`
	Amount    int64 `json:"amount"`
}

type StockHTTPResponse struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

type MutateHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(stock StockService, log logging.Logger) *HTTPHandler {
	if log == nil {
		log = logging.Nop
	}
	return &HTTPHandler{stock: stock, log: log}
}

// Register mounts the stock routes and the health check on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /stock/{productId}", h.GetStock)
	mux.HandleFunc("POST /stock/retrieve", h.Retrieve)
	mux.HandleFunc("POST /stock/restock", h.Restock)
}

func (h *HTTPHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.PathValue("productId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, MutateHTTPResponse{
			Success: false,
			Message: "invalid product id",
		})
		return
	}

	quantity, err := h.stock.GetStock(r.Context(), productID)
	if err != nil {
		h.writeError(w, r, productID, err)
		return
	}

	writeJSON(w, http.StatusOK, StockHTTPResponse{
		ProductID: productID,
		Quantity:  quantity,
	})
}

func (h *HTTPHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.stock.Retrieve, "stock retrieved")
}

func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.stock.Restock, "stock replenished")
}

func (h *HTTPHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, int64) error, ok string) {
	var req StockHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, MutateHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if err := op(r.Context(), req.ProductID, req.Amount); err != nil {
		h.writeError(w, r, req.ProductID, err)
		return
	}

	writeJSON(w, http.StatusOK, MutateHTTPResponse{
		Success: true,
		Message: ok,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, productID int64, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		status = http.StatusBadRequest
		message = "invalid amount"
	case errors.Is(err, service.ErrInsufficientStock):
		status = http.StatusConflict
		message = "insufficient stock"
	case errors.Is(err, service.ErrBackingStoreUnavailable), errors.Is(err, service.ErrClosed):
		status = http.StatusServiceUnavailable
		message = "stock temporarily unavailable"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("stock request failed", logging.Fields{
			"request_id": RequestID(r.Context()),
			"path":       r.URL.Path,
			"product_id": productID,
			"status":     status,
			"err":        err,
		})
	}

	writeJSON(w, status, MutateHTTPResponse{
		Success: false,
		Message: message,
	})
}

// WithRequestID propagates the caller's X-Request-ID, or assigns a new one,
// and echoes it on the response.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
