package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one catalog entry as served by GET /products/fetchall.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Thumbnail   string          `json:"thumbnail"`
	Images      []string        `json:"imgs"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	DateAdded   time.Time       `json:"date_added"`

	FrameMaterial string  `json:"frameMaterial,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
	WheelSize     float64 `json:"wheelSize,omitempty"`
	GearSystem    string  `json:"gearSystem,omitempty"`
	BrakeType     string  `json:"brakeType,omitempty"`
	Suspension    string  `json:"suspension,omitempty"`
	TyreType      string  `json:"tyreType,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Warranty      string  `json:"warranty,omitempty"`

	Stores []Outlet `json:"stores,omitempty"`
}

// Outlet is a physical shop that stocks a product.
type Outlet struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}
