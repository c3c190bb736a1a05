// Package orderbook groups raw market orders into per-price depth levels
// for the buy and sell sides of the book.
package orderbook

import (
	"sort"

	"marketlens/internal/model"
)

// Aggregate partitions orders by side, sums remaining volume per exact
// price, and returns buy levels sorted by price descending (best bid first)
// and sell levels ascending (best ask first). Truncating to the top N
// levels is left to the presentation layer.
func Aggregate(orders []model.OrderRecord) (buy, sell []model.DepthLevel) {
	buyVol := make(map[float64]int64)
	sellVol := make(map[float64]int64)
	for _, o := range orders {
		if o.IsBuyOrder {
			buyVol[o.Price] += o.VolumeRemain
		} else {
			sellVol[o.Price] += o.VolumeRemain
		}
	}

	buy = levels(buyVol)
	sell = levels(sellVol)
	sort.Slice(buy, func(i, j int) bool { return buy[i].Price > buy[j].Price })
	sort.Slice(sell, func(i, j int) bool { return sell[i].Price < sell[j].Price })
	return buy, sell
}

func levels(volByPrice map[float64]int64) []model.DepthLevel {
	out := make([]model.DepthLevel, 0, len(volByPrice))
	for price, vol := range volByPrice {
		out = append(out, model.DepthLevel{Price: price, TotalVolume: vol})
	}
	return out
}
