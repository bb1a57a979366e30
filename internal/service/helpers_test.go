package service

import (
	"errors"
	"testing"
	"time"

	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	testBaseToken  = common.HexToAddress("0x6629Ce1Cf35Cc1329ebB4F63202F3f197b3F050B")
	testExecutor   = common.HexToAddress("0x52adf738AAD93c31f798a30b2C74D658e1E9a562")
	testFillHasher = common.HexToAddress("0x845a2Da2D70fEDe8474b1C8518200798c60aC364")
	testMarket     = common.HexToHash("0x0d64c52e8781acdada86920a2d1e5acd6f29dcfe285cf9cae367b671dff05f7d")
	testNow        = time.Unix(1_700_000_000, 0)
)

// seqReader yields 1, 2, 3, ... so salts are distinct and predictable.
type seqReader struct{ b byte }

func (r *seqReader) Read(p []byte) (int, error) {
	for i := range p {
		r.b++
		p[i] = r.b
	}
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

func seqSalts() *signer.SaltGenerator {
	return signer.NewSaltGenerator(&seqReader{})
}

func testKey(t testing.TB) *signer.Key {
	k, err := signer.GenerateKey()
	require.NoError(t, err)
	return k
}

func testSigner(t testing.TB) *signer.Signer {
	s, err := signer.NewSigner(signer.DefaultChainID, testFillHasher, "")
	require.NoError(t, err)
	return s
}

func testProtocol() OrderProtocol {
	return OrderProtocol{
		BaseToken:         testBaseToken,
		Executor:          testExecutor,
		BaseTokenDecimals: 6,
		LadderStepBps:     25,
		StrictLadder:      true,
		LegacyExpiry:      2209006800,
	}
}

func fixedClock() time.Time { return testNow }
