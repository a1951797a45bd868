package domain

// OrderStatusActive marks a live order; any other status is terminal and
// drops the order from the live-order view.
const OrderStatusActive = "STATUS_ACTIVE"

// Order is one of the party's orders on the venue. Size, remaining and price
// are fixed-point strings in the owning market's precisions.
type Order struct {
	ID          string `json:"id"`
	MarketID    string `json:"marketId"`
	PartyID     string `json:"partyId"`
	Size        string `json:"size"`
	Remaining   string `json:"remaining"`
	Price       string `json:"price"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"timeInForce"`
	Status      string `json:"status"`
}

// Live reports whether the order still rests on the book.
func (o Order) Live() bool {
	return o.Status == OrderStatusActive
}
