package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/odds"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/GoPolymarket/sxgate/internal/pkg/metrics"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Exchange is the subset of the exchange API the gateway submits to.
type Exchange interface {
	PostOrders(ctx context.Context, orders []model.NewOrderPayload) (json.RawMessage, error)
	PostFill(ctx context.Context, payload *model.FillPayload) (json.RawMessage, error)
	PostCancel(ctx context.Context, payload *model.CancelPayload) (json.RawMessage, error)
}

type GatewayOptions struct {
	Accounts *AccountManager
	Risk     *RiskEngine
	Orders   *OrderBuilder
	Fills    *FillBuilder
	Cancels  *CancelBuilder
	// Exchange may be nil; requests with submit=true are then refused.
	Exchange          Exchange
	BaseTokenDecimals int32
	LadderStepBps     int
}

type GatewayService struct {
	accounts  *AccountManager
	risk      *RiskEngine
	orders    *OrderBuilder
	fills     *FillBuilder
	cancels   *CancelBuilder
	exchange  Exchange
	decimals  int32
	stepBps   int
	panicMode atomic.Bool
}

func NewGatewayService(opts GatewayOptions) *GatewayService {
	stepBps := opts.LadderStepBps
	if stepBps == 0 {
		stepBps = odds.DefaultLadderStepBps
	}
	return &GatewayService{
		accounts: opts.Accounts,
		risk:     opts.Risk,
		orders:   opts.Orders,
		fills:    opts.Fills,
		cancels:  opts.Cancels,
		exchange: opts.Exchange,
		decimals: opts.BaseTokenDecimals,
		stepBps:  stepBps,
	}
}

// BuildersFromConfig wires the signer and the three payload builders from the
// protocol section. Empty addresses stay zero and fail at build time.
func BuildersFromConfig(p config.ProtocolConfig, salts signer.SaltSource) (*OrderBuilder, *FillBuilder, *CancelBuilder, error) {
	s, err := signer.NewSigner(p.ChainID, common.HexToAddress(p.FillHasher), p.FillDomainVersion)
	if err != nil {
		return nil, nil, nil, err
	}
	orders := NewOrderBuilder(OrderProtocol{
		BaseToken:         common.HexToAddress(p.BaseToken),
		Executor:          common.HexToAddress(p.Executor),
		BaseTokenDecimals: p.BaseTokenDecimals,
		LadderStepBps:     p.LadderStepBps,
		StrictLadder:      p.StrictLadder,
		LegacyExpiry:      p.LegacyExpiry,
	}, salts)
	return orders, NewFillBuilder(s, salts), NewCancelBuilder(s, salts), nil
}

// ActivatePanicMode 紧急停止: 拒绝所有新的签名请求
func (s *GatewayService) ActivatePanicMode(ctx context.Context, account *model.Account) {
	s.panicMode.Store(true)
	logger.Warn("panic mode activated", "account_id", account.ID)
}

func (s *GatewayService) ResetPanicMode(ctx context.Context, account *model.Account) {
	s.panicMode.Store(false)
	logger.Info("panic mode cleared", "account_id", account.ID)
}

func (s *GatewayService) PanicMode() bool {
	return s.panicMode.Load()
}

// PlaceOrders builds and signs every order in the request with the account
// key, after checking the combined stake against the account's limits.
func (s *GatewayService) PlaceOrders(ctx context.Context, account *model.Account, req model.OrderRequest) (resp *model.OrdersResponse, err error) {
	defer func() { countPayload(metrics.SchemaOrder, err) }()

	key, err := s.signingKey(ctx, account, req.Submit)
	if err != nil {
		return nil, err
	}
	params := make([]OrderParams, len(req.Orders))
	stakes := make([]decimal.Decimal, len(req.Orders))
	for i, spec := range req.Orders {
		p, err := parseOrderSpec(i, spec)
		if err != nil {
			return nil, err
		}
		params[i] = p
		stakes[i] = p.Stake
	}
	if err := s.risk.CheckStakes(ctx, account, stakes); err != nil {
		return nil, err
	}

	signed := make([]model.SignedOrder, len(params))
	payloads := make([]model.NewOrderPayload, len(params))
	for i, p := range params {
		so, err := s.orders.BuildOrder(p, key)
		if err != nil {
			return nil, withIndex(err, "orders", i)
		}
		signed[i] = *so
		payloads[i] = so.Payload
	}
	s.risk.Record(ctx, account, stakes)

	resp = &model.OrdersResponse{Orders: signed}
	if req.Submit {
		resp.Exchange, err = s.exchange.PostOrders(ctx, payloads)
		if err != nil {
			return nil, err
		}
		resp.Submitted = true
	}
	logger.Info("orders signed", "account_id", account.ID, "count", len(signed), "submitted", resp.Submitted)
	return resp, nil
}

// Fill signs a fill of req.Orders. Amounts come either as raw taker amounts
// in base units or as nominal taker stakes.
func (s *GatewayService) Fill(ctx context.Context, account *model.Account, req model.FillRequest) (resp *model.FillResponse, err error) {
	defer func() { countPayload(metrics.SchemaFill, err) }()

	hasAmounts, hasStakes := len(req.TakerAmounts) > 0, len(req.TakerStakes) > 0
	if hasAmounts == hasStakes {
		return nil, apperrors.NewValidation("taker_amounts", "set exactly one of taker_amounts or taker_stakes")
	}
	key, err := s.signingKey(ctx, account, req.Submit)
	if err != nil {
		return nil, err
	}

	orders := make([]model.Order, len(req.Orders))
	for i, raw := range req.Orders {
		o, err := model.ParseOrder(raw)
		if err != nil {
			return nil, withIndex(err, "orders", i)
		}
		if account.Risk.VerifyMakerOrders {
			if err := signer.VerifyOrderSignature(o); err != nil {
				return nil, withIndex(err, "orders", i)
			}
		}
		orders[i] = *o
	}

	var (
		payload *model.FillPayload
		stakes  []decimal.Decimal
	)
	if hasStakes {
		baseStakes := make([]*big.Int, len(req.TakerStakes))
		stakes = make([]decimal.Decimal, len(req.TakerStakes))
		for i, raw := range req.TakerStakes {
			field := fmt.Sprintf("taker_stakes[%d]", i)
			d, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return nil, apperrors.NewValidation(field, "not a decimal amount")
			}
			if baseStakes[i], err = odds.ToBaseUnits(field, d, s.decimals); err != nil {
				return nil, err
			}
			stakes[i] = d
		}
		filled, err := parseUints("filled_amounts", req.FilledAmounts)
		if err != nil {
			return nil, err
		}
		if err := s.risk.CheckStakes(ctx, account, stakes); err != nil {
			return nil, err
		}
		payload, err = s.fills.BuildFillFromStakes(orders, baseStakes, filled, key.Address(), key)
		if err != nil {
			return nil, err
		}
	} else {
		amounts, err := parseUints("taker_amounts", req.TakerAmounts)
		if err != nil {
			return nil, err
		}
		if len(amounts) != len(orders) {
			return nil, apperrors.NewValidation("taker_amounts",
				fmt.Sprintf("got %d amounts for %d orders", len(amounts), len(orders)))
		}
		stakes = make([]decimal.Decimal, len(amounts))
		for i, amt := range amounts {
			stake, err := odds.TakerStakeFromFillAmount(amt, orders[i].PercentageOdds)
			if err != nil {
				return nil, withIndex(err, "taker_amounts", i)
			}
			stakes[i] = odds.FromBaseUnits(stake, s.decimals)
		}
		if err := s.risk.CheckStakes(ctx, account, stakes); err != nil {
			return nil, err
		}
		payload, err = s.fills.BuildFill(orders, amounts, key.Address(), key)
		if err != nil {
			return nil, err
		}
	}
	s.risk.Record(ctx, account, stakes)

	resp = &model.FillResponse{Payload: payload}
	if req.Submit {
		resp.Exchange, err = s.exchange.PostFill(ctx, payload)
		if err != nil {
			return nil, err
		}
		resp.Submitted = true
	}
	logger.Info("fill signed", "account_id", account.ID, "orders", len(orders), "order_hashes", payload.OrderHashes, "submitted", resp.Submitted)
	return resp, nil
}

// Cancel signs a cancellation of the account's own orders. Cancels never
// count against risk limits.
func (s *GatewayService) Cancel(ctx context.Context, account *model.Account, req model.CancelRequest) (resp *model.CancelResponse, err error) {
	defer func() { countPayload(metrics.SchemaCancel, err) }()

	if len(req.OrderHashes) == 0 {
		return nil, apperrors.NewValidation("order_hashes", "at least one order hash is required")
	}
	hashes := make([]common.Hash, len(req.OrderHashes))
	for i, raw := range req.OrderHashes {
		h, err := model.ParseHash(fmt.Sprintf("order_hashes[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	key, err := s.signingKey(ctx, account, req.Submit)
	if err != nil {
		return nil, err
	}
	payload, err := s.cancels.BuildCancel(hashes, key.Address(), key)
	if err != nil {
		return nil, err
	}

	resp = &model.CancelResponse{Payload: payload}
	if req.Submit {
		resp.Exchange, err = s.exchange.PostCancel(ctx, payload)
		if err != nil {
			return nil, err
		}
		resp.Submitted = true
	}
	logger.Info("cancel signed", "account_id", account.ID, "order_hashes", payload.OrderHashes, "submitted", resp.Submitted)
	return resp, nil
}

// Quote converts exactly one of percentage, implied or decimal odds. Implied
// and decimal odds are snapped to the ladder first.
func (s *GatewayService) Quote(q model.OddsQuery) (*odds.Quote, error) {
	set := 0
	for _, v := range []string{q.PercentageOdds, q.ImpliedOdds, q.DecimalOdds} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return nil, apperrors.NewValidation("odds", "set exactly one of percentage_odds, implied_odds or decimal_odds")
	}

	var (
		p   *big.Int
		err error
	)
	switch {
	case q.PercentageOdds != "":
		p, err = model.ParseUint("percentage_odds", q.PercentageOdds)
	case q.ImpliedOdds != "":
		var d decimal.Decimal
		if d, err = parseDecimal("implied_odds", q.ImpliedOdds); err == nil {
			p, err = odds.SnapToOddsLadder(d, s.stepBps)
		}
	default:
		var d decimal.Decimal
		if d, err = parseDecimal("decimal_odds", q.DecimalOdds); err == nil {
			p, err = odds.PercentageOddsFromDecimalOdds(d, s.stepBps)
		}
	}
	if err != nil {
		return nil, err
	}
	return odds.NewQuote(p, s.stepBps)
}

func (s *GatewayService) signingKey(ctx context.Context, account *model.Account, submit bool) (*signer.Key, error) {
	if s.panicMode.Load() {
		return nil, apperrors.New(apperrors.ErrReadOnly, "signing suspended: panic mode is active", nil)
	}
	if account == nil {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "account is required", nil)
	}
	if submit && s.exchange == nil {
		return nil, apperrors.NewValidation("submit", "exchange submission is not configured")
	}
	return s.accounts.SigningKey(ctx, account.ID)
}

func parseOrderSpec(i int, spec model.OrderSpec) (OrderParams, error) {
	prefix := fmt.Sprintf("orders[%d].", i)
	hash, err := model.ParseHash(prefix+"market_hash", spec.MarketHash)
	if err != nil {
		return OrderParams{}, err
	}
	stake, err := parseDecimal(prefix+"stake", spec.Stake)
	if err != nil {
		return OrderParams{}, err
	}
	p := OrderParams{
		MarketHash:               hash,
		IsMakerBettingOutcomeOne: spec.IsMakerBettingOutcomeOne,
		Stake:                    stake,
		APIExpiry:                spec.APIExpiry,
	}
	if spec.ImpliedOdds != "" {
		implied, err := parseDecimal(prefix+"implied_odds", spec.ImpliedOdds)
		if err != nil {
			return OrderParams{}, err
		}
		p.ImpliedOdds = &implied
	}
	if spec.PercentageOdds != "" {
		if p.PercentageOdds, err = model.ParseUint(prefix+"percentage_odds", spec.PercentageOdds); err != nil {
			return OrderParams{}, err
		}
	}
	return p, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperrors.NewValidation(field, fmt.Sprintf("%q is not a decimal number", raw))
	}
	return d, nil
}

// parseUints returns nil for an empty list.
func parseUints(field string, raw []string) ([]*big.Int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]*big.Int, len(raw))
	for i, r := range raw {
		v, err := model.ParseUint(fmt.Sprintf("%s[%d]", field, i), r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// withIndex prefixes the field of a builder error with the item position.
func withIndex(err error, field string, i int) error {
	appErr := apperrors.Wrap(err)
	if appErr.Type == apperrors.ErrInternal {
		return err
	}
	name := fmt.Sprintf("%s[%d]", field, i)
	if appErr.Field != "" {
		name += "." + appErr.Field
	}
	out := *appErr
	out.Field = name
	return &out
}

func countPayload(kind string, err error) {
	status := metrics.StatusOK
	switch {
	case err == nil:
	case apperrors.IsType(err, apperrors.ErrValidation),
		apperrors.IsType(err, apperrors.ErrDomain),
		apperrors.IsType(err, apperrors.ErrEncoding):
		status = metrics.StatusRejected
	default:
		status = metrics.StatusError
	}
	metrics.PayloadsTotal.WithLabelValues(kind, status).Inc()
}
