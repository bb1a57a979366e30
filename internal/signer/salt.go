package signer

import (
	"crypto/rand"
	"io"
	"math/big"
	"sync"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
)

// SaltSource yields uniformly random uint256 salts.
type SaltSource interface {
	NextSalt() (*big.Int, error)
}

// SaltGenerator reads 32 bytes of entropy per salt.
type SaltGenerator struct {
	mu sync.Mutex
	r  io.Reader
}

func NewSaltGenerator(r io.Reader) *SaltGenerator {
	return &SaltGenerator{r: r}
}

// DefaultSalts draws from the operating system CSPRNG.
func DefaultSalts() *SaltGenerator {
	return NewSaltGenerator(rand.Reader)
}

func (g *SaltGenerator) NextSalt() (*big.Int, error) {
	var buf [32]byte
	g.mu.Lock()
	_, err := io.ReadFull(g.r, buf[:])
	g.mu.Unlock()
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "read salt entropy", err)
	}
	return new(big.Int).SetBytes(buf[:]), nil
}

// SaltHex renders a salt as bytes32 hex.
func SaltHex(salt *big.Int) string {
	return common.BigToHash(salt).Hex()
}
