package handler

import (
	"context"
	"fmt"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/cached-inventory/internal/adapter/handler/stockrpc"
	"github.com/rl1809/cached-inventory/internal/core/domain"
	"github.com/rl1809/cached-inventory/internal/core/service"
)

func newGRPCClient(t *testing.T, stock *fakeStock) *stockrpc.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer()
	stockrpc.RegisterStockServiceServer(srv, NewGRPCHandler(stock, nil))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return stockrpc.NewClient(conn)
}

func TestGRPCGetStock(t *testing.T) {
	client := newGRPCClient(t, newFakeStock(map[domain.ItemID]int64{42: 13}))

	resp, err := client.GetStock(context.Background(), &stockrpc.GetStockRequest{ProductID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ProductID != 42 || resp.Quantity != 13 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestGRPCRetrieveAndRestock(t *testing.T) {
	stock := newFakeStock(map[domain.ItemID]int64{1: 10})
	client := newGRPCClient(t, stock)
	ctx := context.Background()

	resp, err := client.Retrieve(ctx, &stockrpc.MutateRequest{ProductID: 1, Amount: 6})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected success, got %+v", resp)
	}
	if _, err := client.Restock(ctx, &stockrpc.MutateRequest{ProductID: 1, Amount: 2}); err != nil {
		t.Fatalf("restock: %v", err)
	}

	got, _ := client.GetStock(ctx, &stockrpc.GetStockRequest{ProductID: 1})
	if got.Quantity != 6 {
		t.Errorf("expected 6, got %d", got.Quantity)
	}
}

func TestGRPCStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		amount int64
		code   codes.Code
	}{
		{"invalid amount", nil, -1, codes.InvalidArgument},
		{"insufficient", nil, 11, codes.FailedPrecondition},
		{"unavailable", fmt.Errorf("%w: timeout", service.ErrBackingStoreUnavailable), 1, codes.Unavailable},
		{"internal", fmt.Errorf("boom"), 1, codes.Internal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stock := newFakeStock(map[domain.ItemID]int64{1: 10})
			stock.err = tc.err
			client := newGRPCClient(t, stock)

			_, err := client.Retrieve(context.Background(), &stockrpc.MutateRequest{ProductID: 1, Amount: tc.amount})
			if got := status.Code(err); got != tc.code {
				t.Fatalf("expected %v, got %v (%v)", tc.code, got, err)
			}
		})
	}
}
