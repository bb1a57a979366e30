package service

import (
	"fmt"
	"math/big"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/odds"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/GoPolymarket/sxgate/internal/pkg/metrics"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
)

// FillBuilder turns maker orders plus taker amounts into a signed fill.
type FillBuilder struct {
	signer *signer.Signer
	salts  signer.SaltSource
	// VerifyMakerSigs rejects orders whose signature does not recover to the maker.
	VerifyMakerSigs bool
}

func NewFillBuilder(s *signer.Signer, salts signer.SaltSource) *FillBuilder {
	if salts == nil {
		salts = signer.DefaultSalts()
	}
	return &FillBuilder{signer: s, salts: salts}
}

// BuildFill validates the inputs, draws a fill salt and signs the fill with
// the taker's key. takerAmounts[i] is consumed from orders[i].
func (b *FillBuilder) BuildFill(orders []model.Order, takerAmounts []*big.Int, taker common.Address, key *signer.Key) (*model.FillPayload, error) {
	if len(orders) == 0 {
		return nil, apperrors.NewValidation("orders", "at least one order is required")
	}
	if len(orders) != len(takerAmounts) {
		return nil, apperrors.NewValidation("takerAmounts",
			fmt.Sprintf("got %d amounts for %d orders", len(takerAmounts), len(orders)))
	}
	for i, amt := range takerAmounts {
		if amt == nil || amt.Sign() <= 0 {
			return nil, apperrors.NewValidation(fmt.Sprintf("takerAmounts[%d]", i), "must be a positive integer")
		}
	}
	if key == nil {
		return nil, apperrors.NewSigning("taker signing key is required", nil)
	}
	if taker != key.Address() {
		return nil, apperrors.NewValidation("taker",
			fmt.Sprintf("taker %s does not match signing key %s", taker.Hex(), key.Address().Hex()))
	}

	orderHashes := make([]string, len(orders))
	for i := range orders {
		o := &orders[i]
		if err := validateOrder(i, o); err != nil {
			return nil, err
		}
		h, err := signer.HashOrder(o)
		if err != nil {
			return nil, err
		}
		if b.VerifyMakerSigs {
			if err := signer.VerifyOrderSignature(o); err != nil {
				return nil, err
			}
		}
		orderHashes[i] = h.Hex()
	}

	fillSalt, err := b.salts.NextSalt()
	if err != nil {
		return nil, err
	}
	td, err := b.signer.FillTypedData(signer.FillMessage{
		Orders:       orders,
		TakerAmounts: takerAmounts,
		FillSalt:     fillSalt,
	})
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(td, key)
	if err != nil {
		return nil, err
	}
	metrics.SignaturesTotal.WithLabelValues(metrics.SchemaFill).Inc()

	amounts := make([]string, len(takerAmounts))
	for i, a := range takerAmounts {
		amounts[i] = a.String()
	}
	logger.Debug("fill signed", "orders", len(orders), "order_hashes", orderHashes, "taker", taker.Hex())

	return &model.FillPayload{
		OrderHashes:  orderHashes,
		TakerAmounts: amounts,
		Taker:        taker.Hex(),
		TakerSig:     sig,
		FillSalt:     fillSalt.String(),
		Action:       model.PlaceholderText,
		Market:       model.PlaceholderText,
		Betting:      model.PlaceholderText,
		Stake:        model.PlaceholderText,
		Odds:         model.PlaceholderText,
		Returning:    model.PlaceholderText,
	}, nil
}

// BuildFillFromStakes converts taker stakes (base units) into the amounts each
// order gives up, then builds the fill. When filled is non-nil it holds the
// orders' current fill amounts and stakes beyond the remaining space are
// rejected.
func (b *FillBuilder) BuildFillFromStakes(orders []model.Order, takerStakes, filled []*big.Int, taker common.Address, key *signer.Key) (*model.FillPayload, error) {
	if len(orders) != len(takerStakes) {
		return nil, apperrors.NewValidation("takerStakes",
			fmt.Sprintf("got %d stakes for %d orders", len(takerStakes), len(orders)))
	}
	if filled != nil && len(filled) != len(orders) {
		return nil, apperrors.NewValidation("filledAmounts",
			fmt.Sprintf("got %d fill amounts for %d orders", len(filled), len(orders)))
	}
	amounts := make([]*big.Int, len(orders))
	for i := range orders {
		o := &orders[i]
		if err := validateOrder(i, o); err != nil {
			return nil, err
		}
		if filled != nil {
			space, err := odds.RemainingTakerSpace(o.TotalBetSize, filled[i], o.PercentageOdds)
			if err != nil {
				return nil, err
			}
			if takerStakes[i] != nil && takerStakes[i].Cmp(space) > 0 {
				return nil, apperrors.NewValidation(fmt.Sprintf("takerStakes[%d]", i),
					fmt.Sprintf("stake %s exceeds remaining taker space %s", takerStakes[i].String(), space.String()))
			}
		}
		amt, err := odds.MakerStakeFromTakerStake(takerStakes[i], o.PercentageOdds)
		if err != nil {
			return nil, err
		}
		amounts[i] = amt
	}
	return b.BuildFill(orders, amounts, taker, key)
}

func validateOrder(i int, o *model.Order) error {
	if o.TotalBetSize == nil || o.TotalBetSize.Sign() <= 0 {
		return apperrors.NewValidation(fmt.Sprintf("orders[%d].totalBetSize", i), "must be a positive integer")
	}
	return odds.ValidatePercentageOdds(fmt.Sprintf("orders[%d].percentageOdds", i), o.PercentageOdds)
}
