package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainChecker confirms over JSON-RPC that the configured chain id and fill
// hasher match the network. It never gates offline signing.
type ChainChecker struct {
	rpcURL  string
	mu      sync.Mutex
	client  *ethclient.Client
	timeout time.Duration
	retries int
}

func NewChainChecker(rpcURL string, timeout time.Duration, retries int) *ChainChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &ChainChecker{
		rpcURL:  strings.TrimSpace(rpcURL),
		timeout: timeout,
		retries: retries,
	}
}

type ChainReport struct {
	ChainID       *big.Int
	HasherHasCode bool
}

// Check verifies chain id equality and, for a non-zero fillHasher, that code
// is deployed there.
func (v *ChainChecker) Check(ctx context.Context, expectedChainID int64, fillHasher common.Address) (*ChainReport, error) {
	if v.rpcURL == "" {
		return nil, fmt.Errorf("rpc url not configured")
	}

	var lastErr error
	for attempt := 0; attempt <= v.retries; attempt++ {
		report, err := v.check(ctx, fillHasher)
		if err == nil {
			if report.ChainID.Cmp(big.NewInt(expectedChainID)) != 0 {
				return report, fmt.Errorf("chain id mismatch: rpc reports %s, configured %d", report.ChainID, expectedChainID)
			}
			if fillHasher != (common.Address{}) && !report.HasherHasCode {
				return report, fmt.Errorf("no contract code at fill hasher %s", fillHasher.Hex())
			}
			return report, nil
		}
		lastErr = err
		if !shouldRetry(ctx, attempt, v.retries) {
			break
		}
	}
	return nil, lastErr
}

func (v *ChainChecker) check(ctx context.Context, fillHasher common.Address) (*ChainReport, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	client, err := v.getClient(attemptCtx)
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(attemptCtx)
	if err != nil {
		return nil, fmt.Errorf("rpc chain id failed: %w", err)
	}
	report := &ChainReport{ChainID: chainID}
	if fillHasher != (common.Address{}) {
		code, err := client.CodeAt(attemptCtx, fillHasher, nil)
		if err != nil {
			return nil, fmt.Errorf("rpc get code failed: %w", err)
		}
		report.HasherHasCode = len(code) > 0
	}
	return report, nil
}

// CheckAndLog runs Check and only logs the outcome.
func (v *ChainChecker) CheckAndLog(ctx context.Context, expectedChainID int64, fillHasher common.Address) {
	report, err := v.Check(ctx, expectedChainID, fillHasher)
	if err != nil {
		logger.LogError(ctx, err, "chain check failed", "rpc_url", v.rpcURL)
		return
	}
	logger.Info("chain check passed", "chain_id", report.ChainID.String(), "fill_hasher", fillHasher.Hex())
}

func (v *ChainChecker) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.client != nil {
		v.client.Close()
		v.client = nil
	}
}

func (v *ChainChecker) getClient(ctx context.Context) (*ethclient.Client, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.client != nil {
		return v.client, nil
	}
	client, err := ethclient.DialContext(ctx, v.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect rpc: %w", err)
	}
	v.client = client
	return v.client, nil
}

func shouldRetry(ctx context.Context, attempt, max int) bool {
	if attempt >= max {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		return true
	}
}
