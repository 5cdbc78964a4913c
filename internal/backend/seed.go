package backend

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Illuminatus66/byqr/internal/model"
)

// DemoCatalog is the product list the dev server starts with.
func DemoCatalog() []model.Product {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	pune := []model.Outlet{
		{Name: "Deccan Cycles", Lat: 18.5158, Long: 73.8413},
		{Name: "Baner Bike Hub", Lat: 18.5590, Long: 73.7868},
	}
	mumbai := []model.Outlet{
		{Name: "Bandra Wheels", Lat: 19.0596, Long: 72.8295},
	}
	return []model.Product{
		{
			ID: "bk-trail-29", Name: "Trailblazer 29", Price: decimal.RequireFromString("48999.00"), Stock: 4,
			Thumbnail: "trail29.jpg", Images: []string{"trail29-1.jpg", "trail29-2.jpg"},
			Description: "Hardtail mountain bike for mixed trails.", Category: "mountain", DateAdded: day(2024, 3, 12),
			FrameMaterial: "aluminium", Weight: 13.2, WheelSize: 29, GearSystem: "1x12",
			BrakeType: "hydraulic disc", Suspension: "front 120mm", TyreType: "tubeless", Brand: "Hercules", Warranty: "2 years",
			Stores: pune,
		},
		{
			ID: "bk-city-700", Name: "Metro 700C", Price: decimal.RequireFromString("21499.00"), Stock: 10,
			Thumbnail: "metro.jpg", Images: []string{"metro-1.jpg"},
			Description: "Commuter with rack and fenders.", Category: "city", DateAdded: day(2025, 1, 8),
			FrameMaterial: "steel", Weight: 14.8, WheelSize: 28, GearSystem: "3x7",
			BrakeType: "v-brake", Suspension: "none", TyreType: "clincher", Brand: "Btwin", Warranty: "1 year",
			Stores: append(pune[:1:1], mumbai...),
		},
		{
			ID: "bk-road-aero", Name: "Aero SL", Price: decimal.RequireFromString("124999.00"), Stock: 2,
			Thumbnail: "aero.jpg", Images: []string{"aero-1.jpg", "aero-2.jpg"},
			Description: "Carbon road bike.", Category: "road", DateAdded: day(2025, 6, 30),
			FrameMaterial: "carbon", Weight: 7.9, WheelSize: 28, GearSystem: "2x12",
			BrakeType: "hydraulic disc", Suspension: "none", TyreType: "tubeless", Brand: "Giant", Warranty: "5 years",
			Stores: mumbai,
		},
		{
			ID: "bk-kids-20", Name: "Sprout 20", Price: decimal.RequireFromString("8999.50"), Stock: 7,
			Thumbnail: "sprout.jpg", Images: []string{"sprout-1.jpg"},
			Description: "Kids bike with training wheels.", Category: "kids", DateAdded: day(2023, 11, 2),
			FrameMaterial: "steel", Weight: 9.1, WheelSize: 20, GearSystem: "single speed",
			BrakeType: "caliper", Suspension: "none", TyreType: "clincher", Brand: "Hero", Warranty: "1 year",
			Stores: pune[1:],
		},
	}
}
