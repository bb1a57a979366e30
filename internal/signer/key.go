package signer

import (
	"crypto/ecdsa"
	"strings"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key is a secp256k1 signing key handed to each signing call.
// Its String form only exposes the address.
type Key struct {
	priv    *ecdsa.PrivateKey
	address common.Address
}

// ParseKey accepts a 32-byte hex private key with or without 0x.
func ParseKey(privateKeyHex string) (*Key, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, apperrors.NewSigning("private key is required", nil)
	}
	priv, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, apperrors.NewSigning("invalid private key", err)
	}
	return NewKey(priv)
}

func NewKey(priv *ecdsa.PrivateKey) (*Key, error) {
	if priv == nil {
		return nil, apperrors.NewSigning("private key is required", nil)
	}
	publicKeyECDSA, ok := priv.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, apperrors.NewSigning("error casting public key to ECDSA", nil)
	}
	return &Key{priv: priv, address: crypto.PubkeyToAddress(*publicKeyECDSA)}, nil
}

// GenerateKey creates a fresh random key.
func GenerateKey() (*Key, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, apperrors.NewSigning("generate key", err)
	}
	return NewKey(priv)
}

func (k *Key) Address() common.Address {
	return k.address
}

// Hex exports the private key. Only keygen output should call it.
func (k *Key) Hex() string {
	return hexutil.Encode(crypto.FromECDSA(k.priv))
}

func (k *Key) String() string {
	return "Key(" + k.address.Hex() + ")"
}

func checkKey(k *Key) error {
	if k == nil || k.priv == nil {
		return apperrors.NewSigning("signing key is required", nil)
	}
	return nil
}
