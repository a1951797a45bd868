package domain

// Asset is a settlement or collateral asset. Its decimal-places count scales
// every balance denominated in it.
type Asset struct {
	ID      string        `json:"id"`
	Status  string        `json:"status"`
	Details *AssetDetails `json:"details,omitempty"`
}

type AssetDetails struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals FlexInt `json:"decimals"`
}

func (a Asset) Name() string {
	if a.Details == nil {
		return ""
	}
	return a.Details.Name
}

func (a Asset) Symbol() string {
	if a.Details == nil {
		return ""
	}
	return a.Details.Symbol
}

// Decimals returns the asset's decimal-places count, zero if details are not
// loaded.
func (a Asset) Decimals() int32 {
	if a.Details == nil {
		return 0
	}
	return a.Details.Decimals.Int32()
}
