package main

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProtocol = config.ProtocolConfig{
	ChainID:           signer.DefaultChainID,
	FillDomainVersion: signer.DefaultFillDomainVersion,
	FillHasher:        "0x845a2Da2D70fEDe8474b1C8518200798c60aC364",
	Executor:          "0x52adf738AAD93c31f798a30b2C74D658e1E9a562",
	BaseToken:         "0x6629Ce1Cf35Cc1329ebB4F63202F3f197b3F050B",
	BaseTokenDecimals: 6,
	LadderStepBps:     25,
	StrictLadder:      true,
	LegacyExpiry:      2209006800,
}

func signedOrder(t *testing.T, maker *signer.Key) model.Order {
	t.Helper()
	orders, _, _, err := service.BuildersFromConfig(testProtocol, nil)
	require.NoError(t, err)
	implied := decimal.RequireFromString("0.5")
	so, err := orders.BuildOrder(service.OrderParams{
		MarketHash:  common.HexToHash("0x0d64c52e8781acdada86920a2d1e5acd6f29dcfe285cf9cae367b671dff05f7d"),
		Stake:       decimal.RequireFromString("10"),
		ImpliedOdds: &implied,
	}, maker)
	require.NoError(t, err)
	o, err := model.ParseOrder(so.Payload.OrderJSON)
	require.NoError(t, err)
	return *o
}

func TestDecodeOrdersAcceptsObjectOrArray(t *testing.T) {
	maker, err := signer.GenerateKey()
	require.NoError(t, err)
	o := signedOrder(t, maker)

	single, err := json.Marshal(o)
	require.NoError(t, err)
	got, err := decodeOrders(single)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	many, err := json.Marshal([]model.Order{o, o})
	require.NoError(t, err)
	got, err = decodeOrders(many)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = decodeOrders([]byte("[]"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

func TestParseHashes(t *testing.T) {
	_, err := parseHashes(nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))

	_, err = parseHashes([]string{"0x1234"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrEncoding))

	hs, err := parseHashes([]string{common.HexToHash("0x01").Hex()})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x01"), hs[0])
}

func TestRecoverCancel(t *testing.T) {
	key, err := signer.GenerateKey()
	require.NoError(t, err)
	_, _, cancels, err := service.BuildersFromConfig(testProtocol, nil)
	require.NoError(t, err)
	payload, err := cancels.BuildCancel([]common.Hash{common.HexToHash("0xab")}, key.Address(), key)
	require.NoError(t, err)

	s, err := signer.NewSigner(testProtocol.ChainID, common.HexToAddress(testProtocol.FillHasher), testProtocol.FillDomainVersion)
	require.NoError(t, err)
	out, err := recoverCancel(s, payload)
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Equal(t, key.Address().Hex(), out.Signer)

	payload.Timestamp++
	out, err = recoverCancel(s, payload)
	require.NoError(t, err)
	assert.False(t, out.Valid)
}

func TestRecoverFill(t *testing.T) {
	maker, err := signer.GenerateKey()
	require.NoError(t, err)
	taker, err := signer.GenerateKey()
	require.NoError(t, err)
	order := signedOrder(t, maker)

	_, fills, _, err := service.BuildersFromConfig(testProtocol, nil)
	require.NoError(t, err)
	payload, err := fills.BuildFill([]model.Order{order}, []*big.Int{big.NewInt(1000000)}, taker.Address(), taker)
	require.NoError(t, err)

	s, err := signer.NewSigner(testProtocol.ChainID, common.HexToAddress(testProtocol.FillHasher), testProtocol.FillDomainVersion)
	require.NoError(t, err)
	out, err := recoverFill(s, []model.Order{order}, payload)
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.True(t, strings.EqualFold(taker.Address().Hex(), out.Signer))

	_, err = recoverFill(s, nil, payload)
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}
