package domain

import (
	"time"

	"github.com/google/uuid"
)

// Flush is one attempt to write a cached quantity back to the warehouse.
type Flush struct {
	ID        uuid.UUID
	ItemID    ItemID
	Quantity  int64
	Attempt   int // 1 for the first attempt, incremented on retries
	StartedAt time.Time
}

func NewFlush(itemID ItemID, quantity int64, attempt int) Flush {
	return Flush{
		ID:        uuid.New(),
		ItemID:    itemID,
		Quantity:  quantity,
		Attempt:   attempt,
		StartedAt: time.Now(),
	}
}
