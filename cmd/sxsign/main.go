// Command sxsign builds and verifies SX Bet payloads offline.
package main

import (
	"fmt"
	"os"

	"github.com/GoPolymarket/sxgate/internal/odds"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/joho/godotenv"
	"github.com/urfave/cli"
)

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = "sxsign"
	app.Usage = "sign SX Bet orders, fills and cancels offline"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "key",
			Usage:  "hex private key",
			EnvVar: "SX_PRIVATE_KEY",
		},
		cli.Int64Flag{
			Name:   "chain-id",
			Value:  signer.DefaultChainID,
			EnvVar: "SXGATE_PROTOCOL_CHAIN_ID",
		},
		cli.StringFlag{
			Name:   "fill-hasher",
			Usage:  "EIP712FillHasher contract, the fill domain's verifyingContract",
			EnvVar: "SXGATE_PROTOCOL_FILL_HASHER",
		},
		cli.StringFlag{
			Name:   "domain-version",
			Value:  signer.DefaultFillDomainVersion,
			EnvVar: "SXGATE_PROTOCOL_FILL_DOMAIN_VERSION",
		},
		cli.StringFlag{
			Name:   "base-token",
			EnvVar: "SXGATE_PROTOCOL_BASE_TOKEN",
		},
		cli.StringFlag{
			Name:   "executor",
			EnvVar: "SXGATE_PROTOCOL_EXECUTOR",
		},
		cli.IntFlag{
			Name:  "decimals",
			Value: 6,
			Usage: "base token decimals",
		},
		cli.IntFlag{
			Name:  "ladder-step",
			Value: odds.DefaultLadderStepBps,
			Usage: "odds ladder step in basis points",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "warn",
		},
	}
	app.Before = func(c *cli.Context) error {
		logger.Configure(logger.Options{Level: c.GlobalString("log-level"), Format: "text", Output: os.Stderr})
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:   "keygen",
			Usage:  "generate a new signing key",
			Action: keygen,
		},
		{
			Name:   "address",
			Usage:  "print the address of --key",
			Action: address,
		},
		{
			Name:  "odds",
			Usage: "convert odds and snap them to the ladder",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "percentage", Usage: "percentage odds, 1e20 scale"},
				cli.StringFlag{Name: "implied", Usage: "implied probability, e.g. 0.52"},
				cli.StringFlag{Name: "decimal", Usage: "decimal odds, e.g. 1.95"},
			},
			Action: quote,
		},
		{
			Name:      "order-hash",
			Usage:     "hash an order and check its maker signature",
			ArgsUsage: "<order.json|->",
			Action:    orderHash,
		},
		{
			Name:  "sign-order",
			Usage: "build and sign a maker order",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "market", Usage: "market hash"},
				cli.StringFlag{Name: "stake", Usage: "nominal stake, e.g. 25.5"},
				cli.StringFlag{Name: "implied", Usage: "implied odds, snapped to the ladder"},
				cli.StringFlag{Name: "percentage", Usage: "percentage odds, 1e20 scale"},
				cli.BoolFlag{Name: "outcome-one", Usage: "maker bets on outcome one"},
				cli.Int64Flag{Name: "api-expiry", Usage: "unix seconds, default one hour"},
			},
			Action: signOrder,
		},
		{
			Name:  "fill",
			Usage: "sign a fill of maker orders as taker",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "orders", Usage: "JSON file with an array of signed orders"},
				cli.StringSliceFlag{Name: "amount", Usage: "taker amount in base units, once per order"},
				cli.StringSliceFlag{Name: "stake", Usage: "nominal taker stake, once per order"},
			},
			Action: fill,
		},
		{
			Name:      "cancel",
			Usage:     "sign a cancellation of order hashes",
			ArgsUsage: "<hash> [hash...]",
			Action:    cancel,
		},
		{
			Name:  "recover",
			Usage: "recover the signer of a fill or cancel payload",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "kind", Value: "cancel", Usage: "fill or cancel"},
				cli.StringFlag{Name: "payload", Usage: "payload JSON file"},
				cli.StringFlag{Name: "orders", Usage: "orders JSON file, required for fills"},
			},
			Action: recoverSigner,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
