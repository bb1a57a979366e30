package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/odds"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli"
)

var stdout io.Writer = os.Stdout

func printJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadKey(c *cli.Context) (*signer.Key, error) {
	raw := c.GlobalString("key")
	if raw == "" {
		return nil, apperrors.NewSigning("no key: pass --key or set SX_PRIVATE_KEY", nil)
	}
	return signer.ParseKey(raw)
}

func protocolFromFlags(c *cli.Context) config.ProtocolConfig {
	return config.ProtocolConfig{
		ChainID:           c.GlobalInt64("chain-id"),
		FillDomainVersion: c.GlobalString("domain-version"),
		FillHasher:        c.GlobalString("fill-hasher"),
		Executor:          c.GlobalString("executor"),
		BaseToken:         c.GlobalString("base-token"),
		BaseTokenDecimals: int32(c.GlobalInt("decimals")),
		LadderStepBps:     c.GlobalInt("ladder-step"),
		StrictLadder:      true,
		LegacyExpiry:      2209006800,
	}
}

// readInput reads path, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "" {
		return nil, apperrors.NewInvalidRequest("input file is required")
	}
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// decodeOrders accepts a single order object or an array of them.
func decodeOrders(raw []byte) ([]model.Order, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var o model.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, err
		}
		return []model.Order{o}, nil
	}
	var orders []model.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperrors.NewValidation("orders", "at least one order is required")
	}
	return orders, nil
}

func keygen(c *cli.Context) error {
	key, err := signer.GenerateKey()
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"address":     key.Address().Hex(),
		"private_key": key.Hex(),
	})
}

func address(c *cli.Context) error {
	key, err := loadKey(c)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"address": key.Address().Hex()})
}

func quote(c *cli.Context) error {
	gw := service.NewGatewayService(service.GatewayOptions{LadderStepBps: c.GlobalInt("ladder-step")})
	q, err := gw.Quote(model.OddsQuery{
		PercentageOdds: c.String("percentage"),
		ImpliedOdds:    c.String("implied"),
		DecimalOdds:    c.String("decimal"),
	})
	if err != nil {
		return err
	}
	return printJSON(q)
}

type orderHashOutput struct {
	OrderHash      string `json:"order_hash"`
	Signer         string `json:"signer,omitempty"`
	SignatureValid *bool  `json:"signature_valid,omitempty"`
}

func orderHash(c *cli.Context) error {
	raw, err := readInput(c.Args().First())
	if err != nil {
		return err
	}
	orders, err := decodeOrders(raw)
	if err != nil {
		return err
	}
	out := make([]orderHashOutput, len(orders))
	for i := range orders {
		h, err := signer.HashOrder(&orders[i])
		if err != nil {
			return err
		}
		out[i].OrderHash = h.Hex()
		if orders[i].Signature == "" {
			continue
		}
		addr, err := signer.RecoverOrderSigner(h, orders[i].Signature)
		if err != nil {
			return err
		}
		valid := addr == orders[i].Maker
		out[i].Signer = addr.Hex()
		out[i].SignatureValid = &valid
	}
	if len(out) == 1 {
		return printJSON(out[0])
	}
	return printJSON(out)
}

func signOrder(c *cli.Context) error {
	key, err := loadKey(c)
	if err != nil {
		return err
	}
	orders, _, _, err := service.BuildersFromConfig(protocolFromFlags(c), nil)
	if err != nil {
		return err
	}
	market, err := model.ParseHash("market", c.String("market"))
	if err != nil {
		return err
	}
	stake, err := decimal.NewFromString(c.String("stake"))
	if err != nil {
		return apperrors.NewValidation("stake", "stake must be a decimal number")
	}
	params := service.OrderParams{
		MarketHash:               market,
		IsMakerBettingOutcomeOne: c.Bool("outcome-one"),
		Stake:                    stake,
		APIExpiry:                c.Int64("api-expiry"),
	}
	if s := c.String("implied"); s != "" {
		implied, err := decimal.NewFromString(s)
		if err != nil {
			return apperrors.NewValidation("implied", "implied odds must be a decimal number")
		}
		params.ImpliedOdds = &implied
	}
	if s := c.String("percentage"); s != "" {
		if params.PercentageOdds, err = model.ParseUint("percentage", s); err != nil {
			return err
		}
	}
	signed, err := orders.BuildOrder(params, key)
	if err != nil {
		return err
	}
	return printJSON(signed)
}

func fill(c *cli.Context) error {
	key, err := loadKey(c)
	if err != nil {
		return err
	}
	raw, err := readInput(c.String("orders"))
	if err != nil {
		return err
	}
	orders, err := decodeOrders(raw)
	if err != nil {
		return err
	}
	p := protocolFromFlags(c)
	_, fills, _, err := service.BuildersFromConfig(p, nil)
	if err != nil {
		return err
	}

	amounts, stakes := c.StringSlice("amount"), c.StringSlice("stake")
	var payload *model.FillPayload
	switch {
	case len(amounts) > 0 && len(stakes) > 0:
		return apperrors.NewValidation("amount", "use either --amount or --stake, not both")
	case len(amounts) > 0:
		takerAmounts, err := parseAmounts(amounts)
		if err != nil {
			return err
		}
		payload, err = fills.BuildFill(orders, takerAmounts, key.Address(), key)
		if err != nil {
			return err
		}
	case len(stakes) > 0:
		takerStakes := make([]*big.Int, len(stakes))
		for i, s := range stakes {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return apperrors.NewValidation(fmt.Sprintf("stake[%d]", i), "stake must be a decimal number")
			}
			if takerStakes[i], err = odds.ToBaseUnits(fmt.Sprintf("stake[%d]", i), d, p.BaseTokenDecimals); err != nil {
				return err
			}
		}
		payload, err = fills.BuildFillFromStakes(orders, takerStakes, nil, key.Address(), key)
		if err != nil {
			return err
		}
	default:
		return apperrors.NewValidation("amount", "pass --amount or --stake once per order")
	}
	return printJSON(payload)
}

func parseAmounts(raw []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(raw))
	for i, s := range raw {
		v, err := model.ParseUint(fmt.Sprintf("amount[%d]", i), s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func cancel(c *cli.Context) error {
	key, err := loadKey(c)
	if err != nil {
		return err
	}
	hashes, err := parseHashes(c.Args())
	if err != nil {
		return err
	}
	_, _, cancels, err := service.BuildersFromConfig(protocolFromFlags(c), nil)
	if err != nil {
		return err
	}
	payload, err := cancels.BuildCancel(hashes, key.Address(), key)
	if err != nil {
		return err
	}
	return printJSON(payload)
}

func parseHashes(raw []string) ([]common.Hash, error) {
	if len(raw) == 0 {
		return nil, apperrors.NewValidation("orderHashes", "at least one order hash is required")
	}
	out := make([]common.Hash, len(raw))
	for i, s := range raw {
		h, err := model.ParseHash(fmt.Sprintf("orderHashes[%d]", i), s)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

type recoverOutput struct {
	Signer  string `json:"signer"`
	Claimed string `json:"claimed"`
	Valid   bool   `json:"valid"`
}

func recoverSigner(c *cli.Context) error {
	raw, err := readInput(c.String("payload"))
	if err != nil {
		return err
	}
	s, err := signer.NewSigner(c.GlobalInt64("chain-id"), common.HexToAddress(c.GlobalString("fill-hasher")), c.GlobalString("domain-version"))
	if err != nil {
		return err
	}

	var out *recoverOutput
	switch c.String("kind") {
	case "cancel":
		var payload model.CancelPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}
		out, err = recoverCancel(s, &payload)
	case "fill":
		var payload model.FillPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}
		ordersRaw, err := readInput(c.String("orders"))
		if err != nil {
			return err
		}
		orders, err := decodeOrders(ordersRaw)
		if err != nil {
			return err
		}
		out, err = recoverFill(s, orders, &payload)
		if err != nil {
			return err
		}
	default:
		return apperrors.NewValidation("kind", "kind must be fill or cancel")
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func recoverCancel(s *signer.Signer, p *model.CancelPayload) (*recoverOutput, error) {
	hashes, err := parseHashes(p.OrderHashes)
	if err != nil {
		return nil, err
	}
	salt, err := model.ParseHash("salt", p.Salt)
	if err != nil {
		return nil, err
	}
	td, err := s.CancelTypedData(hashes, salt, p.Timestamp)
	if err != nil {
		return nil, err
	}
	addr, err := signer.RecoverTypedDataSigner(td, p.Signature)
	if err != nil {
		return nil, err
	}
	return &recoverOutput{Signer: addr.Hex(), Claimed: p.Maker, Valid: strings.EqualFold(addr.Hex(), p.Maker)}, nil
}

// recoverFill rebuilds the typed data from the orders the payload references.
// The orders must be given in payload order.
func recoverFill(s *signer.Signer, orders []model.Order, p *model.FillPayload) (*recoverOutput, error) {
	if len(orders) != len(p.OrderHashes) {
		return nil, apperrors.NewValidation("orders",
			fmt.Sprintf("payload references %d orders, got %d", len(p.OrderHashes), len(orders)))
	}
	for i := range orders {
		h, err := signer.HashOrder(&orders[i])
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(h.Hex(), p.OrderHashes[i]) {
			return nil, apperrors.NewValidation(fmt.Sprintf("orders[%d]", i), "order does not match payload hash "+p.OrderHashes[i])
		}
	}
	amounts, err := parseAmounts(p.TakerAmounts)
	if err != nil {
		return nil, err
	}
	fillSalt, err := model.ParseUint("fillSalt", p.FillSalt)
	if err != nil {
		return nil, err
	}
	td, err := s.FillTypedData(signer.FillMessage{Orders: orders, TakerAmounts: amounts, FillSalt: fillSalt})
	if err != nil {
		return nil, err
	}
	addr, err := signer.RecoverTypedDataSigner(td, p.TakerSig)
	if err != nil {
		return nil, err
	}
	return &recoverOutput{Signer: addr.Hex(), Claimed: p.Taker, Valid: strings.EqualFold(addr.Hex(), p.Taker)}, nil
}
