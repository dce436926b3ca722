package domain

// ItemID identifies one inventory line item in the warehouse.
type ItemID = int64
