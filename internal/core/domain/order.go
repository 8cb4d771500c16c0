package domain

import "time"

const OrderPlaced = "placed"

type OrderItem struct {
	ProductID      string
	Quantity       int
	UnitPriceCents int64
}

type Order struct {
	ID         string
	CustomerID string
	Items      []OrderItem
	TotalCents int64
	Status     string
	CreatedAt  time.Time
}

// OrderLine is a requested product quantity before prices are resolved.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
