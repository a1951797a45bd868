package domain

// ReferencePrice is the external venue's best bid/ask for a symbol, used to
// anchor the quoting ladder. It is fully replaced on every ticker event.
type ReferencePrice struct {
	Symbol   string  `json:"symbol"`
	BidPrice float64 `json:"bidPrice"`
	AskPrice float64 `json:"askPrice"`
}
