package signer

import (
	"fmt"
	"math/big"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer builds and signs the exchange's typed data. It carries protocol
// constants only; every signing call takes the key explicitly.
type Signer struct {
	chainID     *big.Int
	fillHasher  common.Address
	fillVersion string
}

// NewSigner validates the protocol constants. A zero fillHasher is allowed
// for cancel-only use; FillTypedData refuses to run without it.
func NewSigner(chainID int64, fillHasher common.Address, fillVersion string) (*Signer, error) {
	if chainID <= 0 {
		return nil, apperrors.NewValidation("chain_id", "chain id must be positive")
	}
	if fillVersion == "" {
		fillVersion = DefaultFillDomainVersion
	}
	return &Signer{
		chainID:     big.NewInt(chainID),
		fillHasher:  fillHasher,
		fillVersion: fillVersion,
	}, nil
}

func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

func (s *Signer) FillHasher() common.Address {
	return s.fillHasher
}

// FillMessage is the variable part of a fill. Orders must carry their maker
// signatures.
type FillMessage struct {
	Orders       []model.Order
	TakerAmounts []*big.Int
	FillSalt     *big.Int
}

// FillTypedData assembles the "SX Bet" Details message.
func (s *Signer) FillTypedData(msg FillMessage) (*apitypes.TypedData, error) {
	if s.fillHasher == (common.Address{}) {
		return nil, apperrors.NewValidation("fill_hasher", "fill hasher address is not configured")
	}
	if len(msg.Orders) == 0 {
		return nil, apperrors.NewValidation("orders", "at least one order is required")
	}
	if len(msg.Orders) != len(msg.TakerAmounts) {
		return nil, apperrors.NewValidation("takerAmounts",
			fmt.Sprintf("got %d amounts for %d orders", len(msg.TakerAmounts), len(msg.Orders)))
	}
	if _, err := uint256Word("fillSalt", msg.FillSalt); err != nil {
		return nil, err
	}

	orders := make([]interface{}, len(msg.Orders))
	makerSigs := make([]interface{}, len(msg.Orders))
	amounts := make([]interface{}, len(msg.TakerAmounts))
	for i := range msg.Orders {
		o := &msg.Orders[i]
		// Encoding errors surface here rather than inside apitypes.
		if _, err := OrderPreimage(o); err != nil {
			return nil, err
		}
		if o.Signature == "" {
			return nil, apperrors.NewValidation(fmt.Sprintf("orders[%d].signature", i), "maker signature is required")
		}
		if _, err := uint256Word(fmt.Sprintf("takerAmounts[%d]", i), msg.TakerAmounts[i]); err != nil {
			return nil, err
		}
		orders[i] = map[string]interface{}{
			"marketHash":               o.MarketHash.Hex(),
			"baseToken":                o.BaseToken.Hex(),
			"totalBetSize":             o.TotalBetSize.String(),
			"percentageOdds":           o.PercentageOdds.String(),
			"expiry":                   o.Expiry.String(),
			"salt":                     o.Salt.String(),
			"maker":                    o.Maker.Hex(),
			"executor":                 o.Executor.Hex(),
			"isMakerBettingOutcomeOne": o.IsMakerBettingOutcomeOne,
		}
		makerSigs[i] = o.Signature
		amounts[i] = msg.TakerAmounts[i].String()
	}

	return &apitypes.TypedData{
		Types:       fillTypes(),
		PrimaryType: DetailsType,
		Domain: apitypes.TypedDataDomain{
			Name:              FillDomainName,
			Version:           s.fillVersion,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(s.chainID)),
			VerifyingContract: s.fillHasher.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"action":    model.PlaceholderText,
			"market":    model.PlaceholderText,
			"betting":   model.PlaceholderText,
			"stake":     model.PlaceholderText,
			"odds":      model.PlaceholderText,
			"returning": model.PlaceholderText,
			"fills": map[string]interface{}{
				"orders":          orders,
				"makerSigs":       makerSigs,
				"takerAmounts":    amounts,
				"fillSalt":        msg.FillSalt.String(),
				"beneficiary":     common.Address{}.Hex(),
				"beneficiaryType": "0",
				"cashOutTarget":   common.Hash{}.Hex(),
			},
		},
	}, nil
}

// CancelTypedData assembles the cancel Details message. The request salt
// doubles as the domain salt.
func (s *Signer) CancelTypedData(orderHashes []common.Hash, salt common.Hash, timestamp int64) (*apitypes.TypedData, error) {
	if len(orderHashes) == 0 {
		return nil, apperrors.NewValidation("orderHashes", "at least one order hash is required")
	}
	if timestamp < 0 {
		return nil, apperrors.NewValidation("timestamp", "must not be negative")
	}
	hashes := make([]interface{}, len(orderHashes))
	for i, h := range orderHashes {
		hashes[i] = h.Hex()
	}
	return &apitypes.TypedData{
		Types:       cancelTypes(),
		PrimaryType: DetailsType,
		Domain: apitypes.TypedDataDomain{
			Name:    CancelDomainName,
			Version: CancelDomainVersion,
			ChainId: (*math.HexOrDecimal256)(new(big.Int).Set(s.chainID)),
			Salt:    salt.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"orderHashes": hashes,
			"timestamp":   big.NewInt(timestamp).String(),
		},
	}, nil
}

// Digest returns keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func Digest(td *apitypes.TypedData) (common.Hash, error) {
	if td == nil {
		return common.Hash{}, apperrors.NewEncoding("typedData", "typed data is required", nil)
	}
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, apperrors.NewEncoding("domain", "hash domain", err)
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, apperrors.NewEncoding("message", "hash message", err)
	}
	rawData := make([]byte, 0, 66)
	rawData = append(rawData, 0x19, 0x01)
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, structHash...)
	return crypto.Keccak256Hash(rawData), nil
}

// Sign signs the typed data digest and returns a 65-byte [R || S || V]
// signature as 0x hex, V in {27, 28}.
func Sign(td *apitypes.TypedData, key *Key) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	digest, err := Digest(td)
	if err != nil {
		return "", err
	}
	return signDigest(digest.Bytes(), key)
}

// SignOrderHash is the maker signature: an EIP-191 personal sign over the
// 32 raw bytes of the order hash.
func SignOrderHash(orderHash common.Hash, key *Key) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return signDigest(accounts.TextHash(orderHash.Bytes()), key)
}

// RecoverTypedDataSigner returns the address that produced sig over td.
func RecoverTypedDataSigner(td *apitypes.TypedData, sig string) (common.Address, error) {
	digest, err := Digest(td)
	if err != nil {
		return common.Address{}, err
	}
	return recoverDigest(digest.Bytes(), sig)
}

// RecoverOrderSigner returns the address behind a maker signature.
func RecoverOrderSigner(orderHash common.Hash, sig string) (common.Address, error) {
	return recoverDigest(accounts.TextHash(orderHash.Bytes()), sig)
}

// VerifyOrderSignature checks that the order's signature was made by its maker.
func VerifyOrderSignature(order *model.Order) error {
	hash, err := HashOrder(order)
	if err != nil {
		return err
	}
	addr, err := RecoverOrderSigner(hash, order.Signature)
	if err != nil {
		return err
	}
	if addr != order.Maker {
		return apperrors.NewValidation("signature",
			fmt.Sprintf("signature recovers to %s, expected maker %s", addr.Hex(), order.Maker.Hex()))
	}
	return nil
}

func signDigest(digest []byte, key *Key) (string, error) {
	signature, err := crypto.Sign(digest, key.priv)
	if err != nil {
		return "", apperrors.NewSigning("sign digest", err)
	}
	// crypto.Sign yields V in {0, 1}; the exchange expects 27/28.
	if signature[64] < 27 {
		signature[64] += 27
	}
	return hexutil.Encode(signature), nil
}

func recoverDigest(digest []byte, sig string) (common.Address, error) {
	raw, err := hexutil.Decode(sig)
	if err != nil {
		return common.Address{}, apperrors.NewEncoding("signature", "signature must be 0x-prefixed hex", err)
	}
	if len(raw) != crypto.SignatureLength {
		return common.Address{}, apperrors.NewEncoding("signature",
			fmt.Sprintf("expected %d bytes, got %d", crypto.SignatureLength, len(raw)), nil)
	}
	sigCopy := make([]byte, len(raw))
	copy(sigCopy, raw)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, sigCopy)
	if err != nil {
		return common.Address{}, apperrors.NewEncoding("signature", "recover public key", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
