package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	orders  [][]model.NewOrderPayload
	fills   []*model.FillPayload
	cancels []*model.CancelPayload
	err     error
}

func (f *fakeExchange) PostOrders(_ context.Context, orders []model.NewOrderPayload) (json.RawMessage, error) {
	f.orders = append(f.orders, orders)
	return json.RawMessage(`{"orders":["0xabc"]}`), f.err
}

func (f *fakeExchange) PostFill(_ context.Context, payload *model.FillPayload) (json.RawMessage, error) {
	f.fills = append(f.fills, payload)
	return json.RawMessage(`{"fillHash":"0x1"}`), f.err
}

func (f *fakeExchange) PostCancel(_ context.Context, payload *model.CancelPayload) (json.RawMessage, error) {
	f.cancels = append(f.cancels, payload)
	return json.RawMessage(`{"cancelledCount":1}`), f.err
}

type gatewayFixture struct {
	gw      *GatewayService
	account *model.Account
	key     *signer.Key
	ex      *fakeExchange
}

func newGatewayFixture(t *testing.T, limits model.RiskLimits) *gatewayFixture {
	t.Helper()
	key := testKey(t)
	account := &model.Account{ID: "bot", ApiKey: "gw-bot", Risk: limits}
	am := NewAccountManager()
	am.Register(account, key)

	s := testSigner(t)
	ex := &fakeExchange{}
	gw := NewGatewayService(GatewayOptions{
		Accounts:          am,
		Risk:              NewRiskEngine(NewRiskUsageStore()),
		Orders:            NewOrderBuilder(testProtocol(), seqSalts()).WithClock(fixedClock),
		Fills:             NewFillBuilder(s, seqSalts()),
		Cancels:           NewCancelBuilder(s, seqSalts()).WithClock(fixedClock),
		Exchange:          ex,
		BaseTokenDecimals: 6,
		LadderStepBps:     25,
	})
	return &gatewayFixture{gw: gw, account: account, key: key, ex: ex}
}

func TestGatewayPlaceOrders(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{})
	resp, err := f.gw.PlaceOrders(context.Background(), f.account, model.OrderRequest{
		Orders: []model.OrderSpec{
			{MarketHash: testMarket.Hex(), Stake: "10", ImpliedOdds: "0.5025"},
			{MarketHash: testMarket.Hex(), Stake: "2.5", PercentageOdds: "25000000000000000000", IsMakerBettingOutcomeOne: true},
		},
		Submit: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 2)
	assert.True(t, resp.Submitted)
	assert.JSONEq(t, `{"orders":["0xabc"]}`, string(resp.Exchange))
	assert.Equal(t, "10000000", resp.Orders[0].Payload.TotalBetSize)
	assert.Equal(t, "50250000000000000000", resp.Orders[0].Payload.PercentageOdds)
	assert.Equal(t, f.key.Address().Hex(), resp.Orders[1].Payload.Maker)

	require.Len(t, f.ex.orders, 1)
	assert.Len(t, f.ex.orders[0], 2)
}

func TestGatewayPlaceOrdersRiskAndIndexing(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{MaxStake: d("5")})
	_, err := f.gw.PlaceOrders(context.Background(), f.account, model.OrderRequest{
		Orders: []model.OrderSpec{{MarketHash: testMarket.Hex(), Stake: "6", ImpliedOdds: "0.5"}},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))

	_, err = f.gw.PlaceOrders(context.Background(), f.account, model.OrderRequest{
		Orders: []model.OrderSpec{
			{MarketHash: testMarket.Hex(), Stake: "1", ImpliedOdds: "0.5"},
			{MarketHash: testMarket.Hex(), Stake: "1", PercentageOdds: "50100000000000000000"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, "orders[1].percentageOdds", apperrors.Wrap(err).Field)

	_, err = f.gw.PlaceOrders(context.Background(), f.account, model.OrderRequest{
		Orders: []model.OrderSpec{{MarketHash: "0x1234", Stake: "1", ImpliedOdds: "0.5"}},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrEncoding))
	assert.Empty(t, f.ex.orders)
}

func TestGatewayFillWithStakes(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{})
	maker := testKey(t)
	order := makerOrder(t, maker, 10_000_000, 2500)

	resp, err := f.gw.Fill(context.Background(), f.account, model.FillRequest{
		Orders:      []model.OrderJSON{order.Wire()},
		TakerStakes: []string{"10"},
	})
	require.NoError(t, err)
	assert.False(t, resp.Submitted)
	assert.Equal(t, []string{"3333333"}, resp.Payload.TakerAmounts)
	assert.Equal(t, f.key.Address().Hex(), resp.Payload.Taker)
	assert.Empty(t, f.ex.fills)
}

func TestGatewayFillWithAmountsSubmits(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{MaxDailyVolume: d("20")})
	order := makerOrder(t, testKey(t), 10_000_000, 5000)

	req := model.FillRequest{
		Orders:       []model.OrderJSON{order.Wire()},
		TakerAmounts: []string{"8000000"},
		Submit:       true,
	}
	resp, err := f.gw.Fill(context.Background(), f.account, req)
	require.NoError(t, err)
	assert.True(t, resp.Submitted)
	require.Len(t, f.ex.fills, 1)

	// 8 consumed at 50% is a taker stake of 8; a second fill breaks the 20 volume cap
	req.TakerAmounts = []string{"13000000"}
	_, err = f.gw.Fill(context.Background(), f.account, req)
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

func TestGatewayFillRequestShape(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{})
	order := makerOrder(t, testKey(t), 10_000_000, 5000)

	_, err := f.gw.Fill(context.Background(), f.account, model.FillRequest{Orders: []model.OrderJSON{order.Wire()}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))

	_, err = f.gw.Fill(context.Background(), f.account, model.FillRequest{
		Orders:       []model.OrderJSON{order.Wire()},
		TakerAmounts: []string{"1"},
		TakerStakes:  []string{"1"},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

func TestGatewayFillVerifiesMakerWhenConfigured(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{VerifyMakerOrders: true})
	order := makerOrder(t, testKey(t), 10_000_000, 5000)
	wire := order.Wire()
	wire.TotalBetSize = "11000000"

	_, err := f.gw.Fill(context.Background(), f.account, model.FillRequest{
		Orders:       []model.OrderJSON{wire},
		TakerAmounts: []string{"1"},
	})
	require.Error(t, err)
	assert.Equal(t, "orders[0].signature", apperrors.Wrap(err).Field)
}

func TestGatewayCancel(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{MaxDailyPayloads: 1})
	hash := testMarket.Hex()

	for i := 0; i < 3; i++ {
		resp, err := f.gw.Cancel(context.Background(), f.account, model.CancelRequest{OrderHashes: []string{hash}, Submit: true})
		require.NoError(t, err)
		assert.Equal(t, f.key.Address().Hex(), resp.Payload.Maker)
		assert.Equal(t, testNow.Unix(), resp.Payload.Timestamp)
	}
	assert.Len(t, f.ex.cancels, 3)

	_, err := f.gw.Cancel(context.Background(), f.account, model.CancelRequest{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

func TestGatewayUpstreamFailure(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{})
	f.ex.err = apperrors.NewUpstream("exchange returned 500", errors.New("boom"))

	_, err := f.gw.Cancel(context.Background(), f.account, model.CancelRequest{OrderHashes: []string{testMarket.Hex()}, Submit: true})
	assert.True(t, apperrors.IsType(err, apperrors.ErrUpstream))
}

func TestGatewayPanicModeAndMissingKey(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{})
	req := model.CancelRequest{OrderHashes: []string{testMarket.Hex()}}

	f.gw.ActivatePanicMode(context.Background(), f.account)
	assert.True(t, f.gw.PanicMode())
	_, err := f.gw.Cancel(context.Background(), f.account, req)
	assert.True(t, apperrors.IsType(err, apperrors.ErrReadOnly))

	f.gw.ResetPanicMode(context.Background(), f.account)
	_, err = f.gw.Cancel(context.Background(), f.account, req)
	assert.NoError(t, err)

	_, err = f.gw.Cancel(context.Background(), &model.Account{ID: "viewer"}, req)
	assert.True(t, apperrors.IsType(err, apperrors.ErrSigning))
}

func TestGatewaySubmitWithoutExchange(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{})
	f.gw.exchange = nil
	_, err := f.gw.Cancel(context.Background(), f.account, model.CancelRequest{OrderHashes: []string{testMarket.Hex()}, Submit: true})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}

func TestGatewayQuote(t *testing.T) {
	f := newGatewayFixture(t, model.RiskLimits{})

	q, err := f.gw.Quote(model.OddsQuery{ImpliedOdds: "0.50333"})
	require.NoError(t, err)
	assert.Equal(t, "50250000000000000000", q.PercentageOdds)
	assert.True(t, q.OnLadder)

	q, err = f.gw.Quote(model.OddsQuery{DecimalOdds: "2"})
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000000", q.PercentageOdds)

	q, err = f.gw.Quote(model.OddsQuery{PercentageOdds: "50100000000000000000"})
	require.NoError(t, err)
	assert.False(t, q.OnLadder)

	_, err = f.gw.Quote(model.OddsQuery{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
	_, err = f.gw.Quote(model.OddsQuery{ImpliedOdds: "0.5", DecimalOdds: "2"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
	_, err = f.gw.Quote(model.OddsQuery{ImpliedOdds: "abc"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrValidation))
}
