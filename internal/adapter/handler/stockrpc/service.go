// Package stockrpc describes the inventory.StockService gRPC service. Messages
// are plain structs carried by a msgpack codec, so no generated code is
// involved.
package stockrpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "inventory.StockService"

const (
	methodGetStock = "/" + ServiceName + "/GetStock"
	methodRetrieve = "/" + ServiceName + "/Retrieve"
	methodRestock  = "/" + ServiceName + "/Restock"
)

type StockServiceServer interface {
	GetStock(context.Context, *GetStockRequest) (*GetStockResponse, error)
	Retrieve(context.Context, *MutateRequest) (*MutateResponse, error)
	Restock(context.Context, *MutateRequest) (*MutateResponse, error)
}

func RegisterStockServiceServer(s grpc.ServiceRegistrar, srv StockServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStock", Handler: getStockHandler},
		{MethodName: "Retrieve", Handler: retrieveHandler},
		{MethodName: "Restock", Handler: restockHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stockrpc",
}

func getStockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetStockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockServiceServer).GetStock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetStock}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockServiceServer).GetStock(ctx, req.(*GetStockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func retrieveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(MutateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockServiceServer).Retrieve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRetrieve}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockServiceServer).Retrieve(ctx, req.(*MutateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func restockHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(MutateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockServiceServer).Restock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRestock}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockServiceServer).Restock(ctx, req.(*MutateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls StockService using the msgpack codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetStock(ctx context.Context, in *GetStockRequest, opts ...grpc.CallOption) (*GetStockResponse, error) {
	out := new(GetStockResponse)
	if err := c.cc.Invoke(ctx, methodGetStock, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Retrieve(ctx context.Context, in *MutateRequest, opts ...grpc.CallOption) (*MutateResponse, error) {
	out := new(MutateResponse)
	if err := c.cc.Invoke(ctx, methodRetrieve, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Restock(ctx context.Context, in *MutateRequest, opts ...grpc.CallOption) (*MutateResponse, error) {
	out := new(MutateResponse)
	if err := c.cc.Invoke(ctx, methodRestock, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
