package domain

import (
	"encoding/json"
	"strings"
)

// Position sides, derived from the sign of the open volume.
const (
	SideLong  = "BUY"
	SideShort = "SELL"
)

// Position is the party's position in one market; one position per (party,
// market). Open volume is a signed fixed-point string in the market's
// position precision, the prices in its price precision and the PnL fields
// in the settlement asset's precision.
type Position struct {
	PartyID           string `json:"partyId"`
	MarketID          string `json:"marketId"`
	OpenVolume        string `json:"openVolume"`
	AverageEntryPrice string `json:"averageEntryPrice"`
	RealisedPnl       string `json:"realisedPnl"`
	UnrealisedPnl     string `json:"unrealisedPnl"`
}

// Side returns BUY for a long position, SELL for a short one and empty when
// flat. The sign is readable from the raw volume without knowing the
// market's precision.
func (p Position) Side() string {
	v := strings.TrimLeft(p.OpenVolume, "0")
	switch {
	case v == "" || v == "-":
		return ""
	case strings.HasPrefix(p.OpenVolume, "-"):
		return SideShort
	default:
		return SideLong
	}
}

// UnmarshalJSON accepts both the REST PnL field names and the streaming
// upper-case variants (realisedPNL, unrealisedPNL).
func (p *Position) UnmarshalJSON(b []byte) error {
	type wire struct {
		PartyID           string `json:"partyId"`
		MarketID          string `json:"marketId"`
		OpenVolume        string `json:"openVolume"`
		AverageEntryPrice string `json:"averageEntryPrice"`
		RealisedPnl       string `json:"realisedPnl"`
		RealisedPNL       string `json:"realisedPNL"`
		UnrealisedPnl     string `json:"unrealisedPnl"`
		UnrealisedPNL     string `json:"unrealisedPNL"`
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p.PartyID = w.PartyID
	p.MarketID = w.MarketID
	p.OpenVolume = w.OpenVolume
	p.AverageEntryPrice = w.AverageEntryPrice
	p.RealisedPnl = w.RealisedPnl
	if p.RealisedPnl == "" {
		p.RealisedPnl = w.RealisedPNL
	}
	p.UnrealisedPnl = w.UnrealisedPnl
	if p.UnrealisedPnl == "" {
		p.UnrealisedPnl = w.UnrealisedPNL
	}
	return nil
}
