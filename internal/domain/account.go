package domain

import (
	"encoding/json"
	"fmt"
)

// Account holds a party's fixed-point balance for one (owner, market, type,
// asset) tuple. The balance cannot be interpreted without the referenced
// asset's decimal-places count.
type Account struct {
	Owner    string `json:"owner"`
	MarketID string `json:"marketId"`
	Type     string `json:"type"`
	Balance  string `json:"balance"`
	Asset    string `json:"asset"`
}

// Key identifies the account across feeds; every field participates because
// a party holds separate margin and general accounts per market and asset.
func (a Account) Key() string {
	return fmt.Sprintf("%s-%s-%s-%s", a.Owner, a.MarketID, a.Type, a.Asset)
}

// UnmarshalJSON accepts both the REST field names (owner, asset) and the
// streaming field names (partyId, assetId).
func (a *Account) UnmarshalJSON(b []byte) error {
	type wire struct {
		Owner    string `json:"owner"`
		PartyID  string `json:"partyId"`
		MarketID string `json:"marketId"`
		Type     string `json:"type"`
		Balance  string `json:"balance"`
		Asset    string `json:"asset"`
		AssetID  string `json:"assetId"`
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	a.Owner = w.Owner
	if a.Owner == "" {
		a.Owner = w.PartyID
	}
	a.Asset = w.Asset
	if a.Asset == "" {
		a.Asset = w.AssetID
	}
	a.MarketID = w.MarketID
	a.Type = w.Type
	a.Balance = w.Balance
	return nil
}
