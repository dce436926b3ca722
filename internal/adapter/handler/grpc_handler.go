package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/cached-inventory/internal/adapter/handler/stockrpc"
	"github.com/rl1809/cached-inventory/internal/core/service"
	"github.com/rl1809/cached-inventory/internal/logging"
)

type GRPCHandler struct {
	stock StockService
	log   logging.Logger
}

var _ stockrpc.StockServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(stock StockService, log logging.Logger) *GRPCHandler {
	if log == nil {
		log = logging.Nop
	}
	return &GRPCHandler{stock: stock, log: log}
}

func (h *GRPCHandler) GetStock(ctx context.Context, req *stockrpc.GetStockRequest) (*stockrpc.GetStockResponse, error) {
	quantity, err := h.stock.GetStock(ctx, req.ProductID)
	if err != nil {
		return nil, h.statusOf("GetStock", req.ProductID, err)
	}
	return &stockrpc.GetStockResponse{
		ProductID: req.ProductID,
		Quantity:  quantity,
	}, nil
}

func (h *GRPCHandler) Retrieve(ctx context.Context, req *stockrpc.MutateRequest) (*stockrpc.MutateResponse, error) {
	if err := h.stock.Retrieve(ctx, req.ProductID, req.Amount); err != nil {
		return nil, h.statusOf("Retrieve", req.ProductID, err)
	}
	return &stockrpc.MutateResponse{
		Success: true,
		Message: "stock retrieved",
	}, nil
}

func (h *GRPCHandler) Restock(ctx context.Context, req *stockrpc.MutateRequest) (*stockrpc.MutateResponse, error) {
	if err := h.stock.Restock(ctx, req.ProductID, req.Amount); err != nil {
		return nil, h.statusOf("Restock", req.ProductID, err)
	}
	return &stockrpc.MutateResponse{
		Success: true,
		Message: "stock replenished",
	}, nil
}

func (h *GRPCHandler) statusOf(method string, productID int64, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return status.Error(codes.InvalidArgument, "invalid amount")
	case errors.Is(err, service.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, "insufficient stock")
	case errors.Is(err, service.ErrBackingStoreUnavailable), errors.Is(err, service.ErrClosed):
		h.log.Warn("stock rpc unavailable", logging.Fields{"method": method, "product_id": productID, "err": err})
		return status.Error(codes.Unavailable, "stock temporarily unavailable")
	default:
		h.log.Error("stock rpc failed", logging.Fields{"method": method, "product_id": productID, "err": err})
		return status.Error(codes.Internal, "internal error")
	}
}
