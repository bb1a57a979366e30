package signer

import (
	"math/big"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// OrderPreimageLength is the packed width:
// bytes32 + address + 4*uint256 + address + address + bool.
const OrderPreimageLength = 32 + 20 + 32*4 + 20 + 20 + 1

// OrderPreimage returns the tightly packed encoding the settlement contract
// hashes to identify an order.
func OrderPreimage(order *model.Order) ([]byte, error) {
	if order == nil {
		return nil, apperrors.NewEncoding("order", "order is required", nil)
	}
	data := make([]byte, 0, OrderPreimageLength)

	data = append(data, order.MarketHash.Bytes()...)
	data = append(data, order.BaseToken.Bytes()...)

	for _, f := range []struct {
		name string
		v    *big.Int
	}{
		{"totalBetSize", order.TotalBetSize},
		{"percentageOdds", order.PercentageOdds},
		{"expiry", order.Expiry},
		{"salt", order.Salt},
	} {
		word, err := uint256Word(f.name, f.v)
		if err != nil {
			return nil, err
		}
		data = append(data, word...)
	}

	data = append(data, order.Maker.Bytes()...)
	data = append(data, order.Executor.Bytes()...)
	if order.IsMakerBettingOutcomeOne {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	return data, nil
}

// HashOrder is keccak256 over OrderPreimage.
func HashOrder(order *model.Order) (common.Hash, error) {
	data, err := OrderPreimage(order)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(data), nil
}

func uint256Word(field string, v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, apperrors.NewEncoding(field, "uint256 value is missing", nil)
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		return nil, apperrors.NewEncoding(field, "value does not fit in uint256", nil)
	}
	return math.PaddedBigBytes(v, 32), nil
}
