package service

import (
	"time"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/GoPolymarket/sxgate/internal/pkg/metrics"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
)

type CancelBuilder struct {
	signer *signer.Signer
	salts  signer.SaltSource
	now    func() time.Time
}

func NewCancelBuilder(s *signer.Signer, salts signer.SaltSource) *CancelBuilder {
	if salts == nil {
		salts = signer.DefaultSalts()
	}
	return &CancelBuilder{signer: s, salts: salts, now: time.Now}
}

// WithClock swaps the timestamp source.
func (b *CancelBuilder) WithClock(now func() time.Time) *CancelBuilder {
	b.now = now
	return b
}

// BuildCancel signs a cancellation of orderHashes with the maker's key.
// Empty input is rejected before any entropy is drawn or key is touched.
func (b *CancelBuilder) BuildCancel(orderHashes []common.Hash, maker common.Address, key *signer.Key) (*model.CancelPayload, error) {
	if len(orderHashes) == 0 {
		return nil, apperrors.NewValidation("orderHashes", "at least one order hash is required")
	}
	if key == nil {
		return nil, apperrors.NewSigning("maker signing key is required", nil)
	}
	if maker != key.Address() {
		return nil, apperrors.NewValidation("maker", "maker does not match signing key "+key.Address().Hex())
	}

	saltInt, err := b.salts.NextSalt()
	if err != nil {
		return nil, err
	}
	salt := common.BigToHash(saltInt)
	timestamp := b.now().Unix()

	td, err := b.signer.CancelTypedData(orderHashes, salt, timestamp)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(td, key)
	if err != nil {
		return nil, err
	}
	metrics.SignaturesTotal.WithLabelValues(metrics.SchemaCancel).Inc()

	hashes := make([]string, len(orderHashes))
	for i, h := range orderHashes {
		hashes[i] = h.Hex()
	}
	logger.Debug("cancel signed", "order_hashes", hashes, "maker", maker.Hex())

	return &model.CancelPayload{
		Signature:   sig,
		OrderHashes: hashes,
		Salt:        salt.Hex(),
		Maker:       maker.Hex(),
		Timestamp:   timestamp,
	}, nil
}
