package stockrpc

type GetStockRequest struct {
	ProductID int64 `msgpack:"product_id"`
}

type GetStockResponse struct {
	ProductID int64 `msgpack:"product_id"`
	Quantity  int64 `msgpack:"quantity"`
}

// MutateRequest is shared by Retrieve and Restock.
type MutateRequest struct {
	ProductID int64 `msgpack:"product_id"`
	Amount    int64 `msgpack:"amount"`
}

type MutateResponse struct {
	Success bool   `msgpack:"success"`
	Message string `msgpack:"message"`
}
