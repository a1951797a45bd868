package domain

// Wire constants for order submissions.
const (
	OrderSideBuy   = "SIDE_BUY"
	OrderSideSell  = "SIDE_SELL"
	OrderTypeLimit = "TYPE_LIMIT"
	TimeInForceGTC = "TIME_IN_FORCE_GTC"
)

// OrderSubmission is a new order inside a batch instruction. Size and price
// are fixed-point strings in the target market's precisions.
type OrderSubmission struct {
	MarketID    string `json:"marketId"`
	Size        string `json:"size"`
	Price       string `json:"price"`
	TimeInForce string `json:"timeInForce"`
	Type        string `json:"type"`
	Side        string `json:"side"`
}

// OrderCancellation cancels one resting order.
type OrderCancellation struct {
	OrderID  string `json:"orderId"`
	MarketID string `json:"marketId"`
}

// OrderAmendment amends a resting order in place. The current strategy never
// emits amendments but the batch wire format carries them.
type OrderAmendment struct {
	OrderID   string `json:"orderId"`
	SizeDelta string `json:"sizeDelta"`
	Price     string `json:"price"`
}

// BatchMarketInstruction is one atomic submission of cancellations,
// amendments and new orders. It is ephemeral; nothing stores it.
type BatchMarketInstruction struct {
	Cancellations []OrderCancellation `json:"cancellations"`
	Amendments    []OrderAmendment    `json:"amendments"`
	Submissions   []OrderSubmission   `json:"submissions"`
}
