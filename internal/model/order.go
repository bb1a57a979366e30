package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PlaceholderText 是 Fill 外层六个字符串字段的固定值, 属于签名摘要的一部分
const PlaceholderText = "N/A"

// Order is a maker order as the settlement contract sees it.
// Integers are carried as *big.Int and serialised as decimal strings.
type Order struct {
	MarketHash               common.Hash
	BaseToken                common.Address
	TotalBetSize             *big.Int
	PercentageOdds           *big.Int
	Expiry                   *big.Int
	Salt                     *big.Int
	Maker                    common.Address
	Executor                 common.Address
	IsMakerBettingOutcomeOne bool
	Signature                string
}

// OrderJSON is the wire shape of an order.
type OrderJSON struct {
	MarketHash               string `json:"marketHash"`
	BaseToken                string `json:"baseToken"`
	TotalBetSize             string `json:"totalBetSize"`
	PercentageOdds           string `json:"percentageOdds"`
	Expiry                   string `json:"expiry"`
	Salt                     string `json:"salt"`
	Maker                    string `json:"maker"`
	Executor                 string `json:"executor"`
	IsMakerBettingOutcomeOne bool   `json:"isMakerBettingOutcomeOne"`
	Signature                string `json:"signature,omitempty"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Wire())
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var raw OrderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrder(raw)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// Wire renders the order in its JSON shape.
func (o Order) Wire() OrderJSON {
	return OrderJSON{
		MarketHash:               o.MarketHash.Hex(),
		BaseToken:                o.BaseToken.Hex(),
		TotalBetSize:             bigString(o.TotalBetSize),
		PercentageOdds:           bigString(o.PercentageOdds),
		Expiry:                   bigString(o.Expiry),
		Salt:                     bigString(o.Salt),
		Maker:                    o.Maker.Hex(),
		Executor:                 o.Executor.Hex(),
		IsMakerBettingOutcomeOne: o.IsMakerBettingOutcomeOne,
		Signature:                o.Signature,
	}
}

// ParseOrder converts the wire shape, rejecting malformed widths with an
// EncodingError and malformed integers with a ValidationError.
func ParseOrder(raw OrderJSON) (*Order, error) {
	marketHash, err := ParseHash("marketHash", raw.MarketHash)
	if err != nil {
		return nil, err
	}
	baseToken, err := ParseAddress("baseToken", raw.BaseToken)
	if err != nil {
		return nil, err
	}
	maker, err := ParseAddress("maker", raw.Maker)
	if err != nil {
		return nil, err
	}
	executor, err := ParseAddress("executor", raw.Executor)
	if err != nil {
		return nil, err
	}
	total, err := ParseUint("totalBetSize", raw.TotalBetSize)
	if err != nil {
		return nil, err
	}
	pct, err := ParseUint("percentageOdds", raw.PercentageOdds)
	if err != nil {
		return nil, err
	}
	expiry, err := ParseUint("expiry", raw.Expiry)
	if err != nil {
		return nil, err
	}
	salt, err := ParseUint("salt", raw.Salt)
	if err != nil {
		return nil, err
	}
	if raw.Signature != "" {
		if _, err := hexutil.Decode(raw.Signature); err != nil {
			return nil, apperrors.NewEncoding("signature", "signature must be 0x-prefixed hex", err)
		}
	}
	return &Order{
		MarketHash:               marketHash,
		BaseToken:                baseToken,
		TotalBetSize:             total,
		PercentageOdds:           pct,
		Expiry:                   expiry,
		Salt:                     salt,
		Maker:                    maker,
		Executor:                 executor,
		IsMakerBettingOutcomeOne: raw.IsMakerBettingOutcomeOne,
		Signature:                raw.Signature,
	}, nil
}

// ParseAddress accepts a 20-byte hex address with or without 0x.
func ParseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, apperrors.NewEncoding(field, fmt.Sprintf("%q is not a 20-byte hex address", s), nil)
	}
	return common.HexToAddress(s), nil
}

// ParseHash accepts exactly 32 bytes of 0x-prefixed hex.
func ParseHash(field, s string) (common.Hash, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return common.Hash{}, apperrors.NewEncoding(field, "expected 0x-prefixed hex", err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, apperrors.NewEncoding(field, fmt.Sprintf("expected 32 bytes, got %d", len(b)), nil)
	}
	return common.BytesToHash(b), nil
}

// ParseUint parses a non-negative base-10 integer that fits in 256 bits.
func ParseUint(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, apperrors.NewValidation(field, fmt.Sprintf("%q is not a decimal integer", s))
	}
	if v.Sign() < 0 {
		return nil, apperrors.NewValidation(field, "must not be negative")
	}
	if v.BitLen() > 256 {
		return nil, apperrors.NewEncoding(field, "wider than uint256", nil)
	}
	return v, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// FillPayload is the body of POST /orders/fill/v2.
type FillPayload struct {
	OrderHashes  []string `json:"orderHashes"`
	TakerAmounts []string `json:"takerAmounts"`
	Taker        string   `json:"taker"`
	TakerSig     string   `json:"takerSig"`
	FillSalt     string   `json:"fillSalt"`
	Action       string   `json:"action"`
	Market       string   `json:"market"`
	Betting      string   `json:"betting"`
	Stake        string   `json:"stake"`
	Odds         string   `json:"odds"`
	Returning    string   `json:"returning"`
}

// CancelPayload is the body of POST /orders/cancel/v2.
type CancelPayload struct {
	Signature   string   `json:"signature"`
	OrderHashes []string `json:"orderHashes"`
	Salt        string   `json:"salt"`
	Maker       string   `json:"maker"`
	Timestamp   int64    `json:"timestamp"`
}

// NewOrderPayload is one element of POST /orders/new.
// APIExpiry bounds the order's life on the exchange and is not hashed.
type NewOrderPayload struct {
	OrderJSON
	APIExpiry int64 `json:"apiExpiry"`
}

// SignedOrder pairs a submission payload with the hash the maker signed.
type SignedOrder struct {
	OrderHash string          `json:"orderHash"`
	Payload   NewOrderPayload `json:"payload"`
}
