package order

import (
	"slices"

	"github.com/Illuminatus66/byqr/internal/model"
)

type Direction int

const (
	NewestFirst Direction = iota
	OldestFirst
)

// Sorted returns a copy of orders ordered by creation time.
func Sorted(orders []model.Order, dir Direction) []model.Order {
	out := slices.Clone(orders)
	slices.SortStableFunc(out, func(a, b model.Order) int {
		if dir == OldestFirst {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

type YearGroup struct {
	Year   int
	Orders []model.Order
}

// ByYear groups orders by calendar year, latest year first, newest order first within a year.
func ByYear(orders []model.Order) []YearGroup {
	var groups []YearGroup
	for _, o := range Sorted(orders, NewestFirst) {
		y := o.CreatedAt.Year()
		if n := len(groups); n > 0 && groups[n-1].Year == y {
			groups[n-1].Orders = append(groups[n-1].Orders, o)
			continue
		}
		groups = append(groups, YearGroup{Year: y, Orders: []model.Order{o}})
	}
	return groups
}
