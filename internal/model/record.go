package model

import "time"

// PriceRecord is one day of market history for a (region, type) pair as
// returned by the remote history endpoint. Records arrive in no guaranteed
// order; the series processor sorts before deriving anything. Immutable
// once received.
type PriceRecord struct {
	Date    time.Time `json:"date"` // trading day, UTC midnight
	Average float64   `json:"average"`
	Highest float64   `json:"highest"`
	Lowest  float64   `json:"lowest"`
	Volume  int64     `json:"volume"`
}

// OrderRecord is a single open order from the order-book endpoint.
// Many orders may share the same price.
type OrderRecord struct {
	Price        float64 `json:"price"`
	VolumeRemain int64   `json:"volume_remain"`
	IsBuyOrder   bool    `json:"is_buy_order"`
}

// DepthLevel is the aggregated remaining volume at one price point on one
// side of the book.
type DepthLevel struct {
	Price       float64 `json:"price"`
	TotalVolume int64   `json:"total_volume"`
}
