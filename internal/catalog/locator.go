package catalog

import (
	"errors"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/Illuminatus66/byqr/internal/model"
)

var ErrUnknownProduct = errors.New("product not in catalog")

type NearbyOutlet struct {
	model.Outlet
	DistanceMeters float64
}

// NearestStores lists the outlets stocking productID, closest to from first.
// limit <= 0 returns all of them.
func (c *Cache) NearestStores(productID string, from orb.Point, limit int) ([]NearbyOutlet, error) {
	p, ok := c.Lookup(productID)
	if !ok {
		return nil, ErrUnknownProduct
	}

	out := make([]NearbyOutlet, 0, len(p.Stores))
	for _, s := range p.Stores {
		out = append(out, NearbyOutlet{
			Outlet:         s,
			DistanceMeters: geo.Distance(from, orb.Point{s.Long, s.Lat}),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
