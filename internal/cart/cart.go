package cart

type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart holds at most one line per product, in insertion order.
type Cart struct {
	ID    string `json:"cartId"`
	Lines []Line `json:"lines"`
}

func (c Cart) Quantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

func (c Cart) Has(productID string) bool { return c.index(productID) >= 0 }

func (c Cart) Len() int { return len(c.Lines) }

func (c Cart) index(productID string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	c.Lines = append([]Line(nil), c.Lines...)
	return c
}

type action interface{ cartAction() }

type (
	hydrated    struct{ cart Cart }
	lineRemoved struct{ productID string }
	emptied     struct{}
	reset       struct{}
)

type lineAdded struct {
	productID string
	qty       int
}

type quantitySet struct {
	productID string
	qty       int
}

func (hydrated) cartAction()    {}
func (lineAdded) cartAction()   {}
func (quantitySet) cartAction() {}
func (lineRemoved) cartAction() {}
func (emptied) cartAction()     {}
func (reset) cartAction()       {}

// apply is the only place cart contents change.
func apply(c Cart, a action) Cart {
	c = c.clone()
	switch a := a.(type) {
	case hydrated:
		return a.cart.clone()
	case lineAdded:
		if i := c.index(a.productID); i >= 0 {
			c.Lines[i].Quantity += a.qty
			return c
		}
		c.Lines = append(c.Lines, Line{ProductID: a.productID, Quantity: a.qty})
	case quantitySet:
		if i := c.index(a.productID); i >= 0 {
			c.Lines[i].Quantity = a.qty
		}
	case lineRemoved:
		if i := c.index(a.productID); i >= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
	case emptied:
		c.Lines = nil
	case reset:
		return Cart{}
	default:
		panic("cart: unhandled action")
	}
	return c
}
