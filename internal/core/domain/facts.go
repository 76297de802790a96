package domain

// DefaultLockUpDays is assumed when a filing states no lock-up period.
const DefaultLockUpDays = 180

// PriceRange is the proposed offering price range per share.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// KeyFacts are headline IPO facts extracted from a filing's text.
// Zero values mean the fact was not found.
type KeyFacts struct {
	// Symbol is the proposed ticker symbol named in the filing.
	Symbol string `json:"symbol,omitempty"`

	// Exchange is the listing venue (e.g. "Nasdaq Global Select").
	Exchange string `json:"exchange,omitempty"`

	// SharesOffered is the number of shares in the offering.
	SharesOffered int64 `json:"shares_offered,omitempty"`

	// PriceRange is the proposed price range.
	PriceRange PriceRange `json:"price_range"`

	// LockUpDays is the lock-up period in days.
	LockUpDays int `json:"lockup_days"`

	// RiskFactorCount counts enumerated risk factors.
	RiskFactorCount int `json:"risk_factor_count,omitempty"`
}

// HasFacts returns true if the document type carries extractable offering facts.
func (t DocumentType) HasFacts() bool {
	return t == DocTypeRegistration || t == DocTypeProspectus
}
