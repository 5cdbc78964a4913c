package cart

import (
	"github.com/shopspring/decimal"

	"github.com/Illuminatus66/byqr/internal/model"
)

type PricedLine struct {
	Line
	Product   model.Product
	Available bool
	Subtotal  decimal.Decimal
}

// Priced is the cart resolved against the catalog.
type Priced struct {
	Lines []PricedLine
	Total decimal.Decimal
	Items int
}

// Price resolves each line through the catalog. Lines whose product is gone are kept
// but marked unavailable and left out of the total.
func Price(c Cart, catalog Catalog) Priced {
	out := Priced{Total: decimal.Zero}
	for _, l := range c.Lines {
		pl := PricedLine{Line: l, Subtotal: decimal.Zero}
		if p, ok := catalog.Lookup(l.ProductID); ok {
			pl.Product = p
			pl.Available = true
			pl.Subtotal = p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
			out.Total = out.Total.Add(pl.Subtotal)
			out.Items += l.Quantity
		}
		out.Lines = append(out.Lines, pl)
	}
	return out
}

// OrderLines snapshots the available lines for an order record.
func (p Priced) OrderLines() []model.OrderLine {
	var out []model.OrderLine
	for _, l := range p.Lines {
		if !l.Available {
			continue
		}
		out = append(out, model.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			Qty:       l.Quantity,
			Price:     l.Product.Price,
			Thumbnail: l.Product.Thumbnail,
		})
	}
	return out
}
