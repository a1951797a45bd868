// Package domain holds the plain data entities tracked by the bot. Entities
// carry the venue's fixed-point amounts as raw strings; interpreting them
// requires the decimal-places counts of the owning market or asset, which
// consumers resolve against the store.
package domain

// MarketData is the mutable sub-record of a Market, merged in from the
// market-data feed. Amounts are fixed-point strings in the market's price or
// position precision.
type MarketData struct {
	MarkPrice       string `json:"markPrice"`
	BestBidPrice    string `json:"bestBidPrice"`
	BestOfferPrice  string `json:"bestOfferPrice"`
	BestBidVolume   string `json:"bestBidVolume"`
	BestOfferVolume string `json:"bestOfferVolume"`
	OpenInterest    string `json:"openInterest"`
}

// Market is a tradable market. The decimal-places fields are fixed at
// creation and govern every numeric conversion for the market.
type Market struct {
	ID                    string              `json:"id"`
	State                 string              `json:"state"`
	TradingMode           string              `json:"tradingMode"`
	DecimalPlaces         FlexInt             `json:"decimalPlaces"`
	PositionDecimalPlaces FlexInt             `json:"positionDecimalPlaces"`
	TradableInstrument    *TradableInstrument `json:"tradableInstrument,omitempty"`
	Data                  *MarketData         `json:"marketData,omitempty"`
}

type TradableInstrument struct {
	Instrument Instrument `json:"instrument"`
}

type Instrument struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Future *Future `json:"future,omitempty"`
}

type Future struct {
	SettlementAsset string `json:"settlementAsset"`
}

// Code returns the instrument code, or empty if the instrument is not loaded.
func (m Market) Code() string {
	if m.TradableInstrument == nil {
		return ""
	}
	return m.TradableInstrument.Instrument.Code
}

// Name returns the instrument name, or empty if the instrument is not loaded.
func (m Market) Name() string {
	if m.TradableInstrument == nil {
		return ""
	}
	return m.TradableInstrument.Instrument.Name
}

// SettlementAssetID returns the id of the asset the market settles in, or
// empty if the instrument is not loaded.
func (m Market) SettlementAssetID() string {
	if m.TradableInstrument == nil || m.TradableInstrument.Instrument.Future == nil {
		return ""
	}
	return m.TradableInstrument.Instrument.Future.SettlementAsset
}
