package model

import "encoding/json"

// OrderSpec describes one maker order to build. Exactly one of ImpliedOdds
// or PercentageOdds must be set.
type OrderSpec struct {
	MarketHash               string `json:"market_hash" binding:"required"`
	IsMakerBettingOutcomeOne bool   `json:"is_maker_betting_outcome_one"`
	Stake                    string `json:"stake" binding:"required"` // nominal, e.g. "25.5"
	ImpliedOdds              string `json:"implied_odds,omitempty"`
	PercentageOdds           string `json:"percentage_odds,omitempty"`
	APIExpiry                int64  `json:"api_expiry,omitempty"` // unix seconds
}

type OrderRequest struct {
	Orders []OrderSpec `json:"orders" binding:"required,min=1,dive"`
	Submit bool        `json:"submit"`
}

// FillRequest takes either raw taker amounts (base units) or nominal taker
// stakes; stakes are converted against each order's odds.
type FillRequest struct {
	Orders        []OrderJSON `json:"orders" binding:"required,min=1"`
	TakerAmounts  []string    `json:"taker_amounts,omitempty"`
	TakerStakes   []string    `json:"taker_stakes,omitempty"`
	FilledAmounts []string    `json:"filled_amounts,omitempty"` // current maker-side fills, enables a remaining-space check
	Submit        bool        `json:"submit"`
}

type CancelRequest struct {
	OrderHashes []string `json:"order_hashes" binding:"required,min=1"`
	Submit      bool     `json:"submit"`
}

type OddsQuery struct {
	PercentageOdds string `form:"percentage_odds"`
	ImpliedOdds    string `form:"implied_odds"`
	DecimalOdds    string `form:"decimal_odds"`
}

type OrdersResponse struct {
	Orders    []SignedOrder   `json:"orders"`
	Submitted bool            `json:"submitted"`
	Exchange  json.RawMessage `json:"exchange,omitempty"`
}

type FillResponse struct {
	Payload   *FillPayload    `json:"payload"`
	Submitted bool            `json:"submitted"`
	Exchange  json.RawMessage `json:"exchange,omitempty"`
}

type CancelResponse struct {
	Payload   *CancelPayload  `json:"payload"`
	Submitted bool            `json:"submitted"`
	Exchange  json.RawMessage `json:"exchange,omitempty"`
}
