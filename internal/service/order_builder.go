package service

import (
	"fmt"
	"math/big"
	"time"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/odds"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/GoPolymarket/sxgate/internal/pkg/metrics"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const defaultAPIExpiryTTL = time.Hour

// OrderProtocol carries the protocol addresses and limits every maker order
// shares.
type OrderProtocol struct {
	BaseToken         common.Address
	Executor          common.Address
	BaseTokenDecimals int32
	LadderStepBps     int
	StrictLadder      bool
	LegacyExpiry      int64
}

// OrderParams describes one maker order. Set exactly one of ImpliedOdds or
// PercentageOdds.
type OrderParams struct {
	MarketHash               common.Hash
	IsMakerBettingOutcomeOne bool
	Stake                    decimal.Decimal
	ImpliedOdds              *decimal.Decimal
	PercentageOdds           *big.Int
	APIExpiry                int64
}

type OrderBuilder struct {
	protocol OrderProtocol
	salts    signer.SaltSource
	now      func() time.Time
}

func NewOrderBuilder(protocol OrderProtocol, salts signer.SaltSource) *OrderBuilder {
	if salts == nil {
		salts = signer.DefaultSalts()
	}
	if protocol.LadderStepBps == 0 {
		protocol.LadderStepBps = odds.DefaultLadderStepBps
	}
	return &OrderBuilder{protocol: protocol, salts: salts, now: time.Now}
}

func (b *OrderBuilder) WithClock(now func() time.Time) *OrderBuilder {
	b.now = now
	return b
}

// ResolveOdds returns the percentage odds for p, snapping implied odds to the
// ladder. Explicit off-ladder percentage odds are refused in strict mode.
func (b *OrderBuilder) ResolveOdds(p OrderParams) (*big.Int, error) {
	switch {
	case p.ImpliedOdds != nil && p.PercentageOdds != nil:
		return nil, apperrors.NewValidation("odds", "set either implied odds or percentage odds, not both")
	case p.ImpliedOdds != nil:
		return odds.SnapToOddsLadder(*p.ImpliedOdds, b.protocol.LadderStepBps)
	case p.PercentageOdds != nil:
		if err := odds.ValidatePercentageOdds("percentageOdds", p.PercentageOdds); err != nil {
			return nil, err
		}
		if b.protocol.StrictLadder && !odds.IsOnLadder(p.PercentageOdds, b.protocol.LadderStepBps) {
			return nil, apperrors.NewValidation("percentageOdds",
				fmt.Sprintf("%s is not on the %d bps odds ladder", p.PercentageOdds.String(), b.protocol.LadderStepBps))
		}
		return new(big.Int).Set(p.PercentageOdds), nil
	default:
		return nil, apperrors.NewValidation("odds", "implied odds or percentage odds are required")
	}
}

// BuildOrder composes, hashes and signs one maker order with the maker key.
func (b *OrderBuilder) BuildOrder(p OrderParams, key *signer.Key) (*model.SignedOrder, error) {
	if key == nil {
		return nil, apperrors.NewSigning("maker signing key is required", nil)
	}
	if b.protocol.BaseToken == (common.Address{}) || b.protocol.Executor == (common.Address{}) {
		return nil, apperrors.NewValidation("protocol", "base token and executor addresses must be configured")
	}
	if p.MarketHash == (common.Hash{}) {
		return nil, apperrors.NewValidation("marketHash", "market hash is required")
	}
	pct, err := b.ResolveOdds(p)
	if err != nil {
		return nil, err
	}
	total, err := odds.ToBaseUnits("stake", p.Stake, b.protocol.BaseTokenDecimals)
	if err != nil {
		return nil, err
	}

	now := b.now()
	apiExpiry := p.APIExpiry
	if apiExpiry == 0 {
		apiExpiry = now.Add(defaultAPIExpiryTTL).Unix()
	}
	if apiExpiry <= now.Unix() {
		return nil, apperrors.NewValidation("apiExpiry", "must be in the future")
	}

	salt, err := b.salts.NextSalt()
	if err != nil {
		return nil, err
	}
	order := &model.Order{
		MarketHash:               p.MarketHash,
		BaseToken:                b.protocol.BaseToken,
		TotalBetSize:             total,
		PercentageOdds:           pct,
		Expiry:                   big.NewInt(b.protocol.LegacyExpiry),
		Salt:                     salt,
		Maker:                    key.Address(),
		Executor:                 b.protocol.Executor,
		IsMakerBettingOutcomeOne: p.IsMakerBettingOutcomeOne,
	}
	hash, err := signer.HashOrder(order)
	if err != nil {
		return nil, err
	}
	order.Signature, err = signer.SignOrderHash(hash, key)
	if err != nil {
		return nil, err
	}
	metrics.SignaturesTotal.WithLabelValues(metrics.SchemaOrder).Inc()
	logger.Debug("order signed", "order_hash", hash.Hex(), "maker", order.Maker.Hex(), "percentage_odds", pct.String())

	return &model.SignedOrder{
		OrderHash: hash.Hex(),
		Payload: model.NewOrderPayload{
			OrderJSON: order.Wire(),
			APIExpiry: apiExpiry,
		},
	}, nil
}
