package catalog

import (
	"sort"
	"strings"

	"github.com/Illuminatus66/byqr/internal/model"
)

type SortOrder string

const (
	SortNone      SortOrder = ""
	SortPriceAsc  SortOrder = "price_ascending"
	SortPriceDesc SortOrder = "price_descending"
	SortName      SortOrder = "alphabetical"
	SortNewest    SortOrder = "new"
	SortOldest    SortOrder = "old"
)

// Filter keeps products whose category or brand matches one of values. No values keeps all.
func Filter(products []model.Product, values ...string) []model.Product {
	if len(values) == 0 {
		return append([]model.Product(nil), products...)
	}
	want := make(map[string]struct{}, len(values))
	for _, v := range values {
		want[strings.ToLower(v)] = struct{}{}
	}

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		_, byCat := want[strings.ToLower(p.Category)]
		_, byBrand := want[strings.ToLower(p.Brand)]
		if byCat || byBrand {
			out = append(out, p)
		}
	}
	return out
}

// Sort returns a sorted copy; ties keep catalog order.
func Sort(products []model.Product, order SortOrder) []model.Product {
	out := append([]model.Product(nil), products...)

	var less func(a, b model.Product) bool
	switch order {
	case SortPriceAsc:
		less = func(a, b model.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b model.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortName:
		less = func(a, b model.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortNewest:
		less = func(a, b model.Product) bool { return a.DateAdded.After(b.DateAdded) }
	case SortOldest:
		less = func(a, b model.Product) bool { return a.DateAdded.Before(b.DateAdded) }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
