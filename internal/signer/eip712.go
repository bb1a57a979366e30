package signer

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Protocol constants for EIP-712
const (
	FillDomainName           = "SX Bet"
	DefaultFillDomainVersion = "6.0"

	CancelDomainName    = "CancelOrderV2SportX"
	CancelDomainVersion = "1.0"

	// DefaultChainID is SX Network mainnet.
	DefaultChainID = 4162

	DetailsType = "Details"
)

const (
	fillDomainTypeString   = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	cancelDomainTypeString = "EIP712Domain(string name,string version,uint256 chainId,bytes32 salt)"

	fillDetailsTypeString = "Details(string action,string market,string betting,string stake,string odds,string returning,FillObject fills)" +
		"FillObject(Order[] orders,bytes[] makerSigs,uint256[] takerAmounts,uint256 fillSalt,address beneficiary,uint8 beneficiaryType,bytes32 cashOutTarget)" +
		"Order(bytes32 marketHash,address baseToken,uint256 totalBetSize,uint256 percentageOdds,uint256 expiry,uint256 salt,address maker,address executor,bool isMakerBettingOutcomeOne)"
	cancelDetailsTypeString = "Details(string[] orderHashes,uint256 timestamp)"
)

var (
	FillDomainTypeHash   = crypto.Keccak256Hash([]byte(fillDomainTypeString))
	CancelDomainTypeHash = crypto.Keccak256Hash([]byte(cancelDomainTypeString))

	// FillDetailsTypeHash covers the full encodeType including referenced structs.
	FillDetailsTypeHash   = crypto.Keccak256Hash([]byte(fillDetailsTypeString))
	CancelDetailsTypeHash = crypto.Keccak256Hash([]byte(cancelDetailsTypeString))
)

func fillTypes() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		DetailsType: {
			{Name: "action", Type: "string"},
			{Name: "market", Type: "string"},
			{Name: "betting", Type: "string"},
			{Name: "stake", Type: "string"},
			{Name: "odds", Type: "string"},
			{Name: "returning", Type: "string"},
			{Name: "fills", Type: "FillObject"},
		},
		"FillObject": {
			{Name: "orders", Type: "Order[]"},
			{Name: "makerSigs", Type: "bytes[]"},
			{Name: "takerAmounts", Type: "uint256[]"},
			{Name: "fillSalt", Type: "uint256"},
			{Name: "beneficiary", Type: "address"},
			{Name: "beneficiaryType", Type: "uint8"},
			{Name: "cashOutTarget", Type: "bytes32"},
		},
		"Order": {
			{Name: "marketHash", Type: "bytes32"},
			{Name: "baseToken", Type: "address"},
			{Name: "totalBetSize", Type: "uint256"},
			{Name: "percentageOdds", Type: "uint256"},
			{Name: "expiry", Type: "uint256"},
			{Name: "salt", Type: "uint256"},
			{Name: "maker", Type: "address"},
			{Name: "executor", Type: "address"},
			{Name: "isMakerBettingOutcomeOne", Type: "bool"},
		},
	}
}

func cancelTypes() apitypes.Types {
	return apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "salt", Type: "bytes32"},
		},
		DetailsType: {
			{Name: "orderHashes", Type: "string[]"},
			{Name: "timestamp", Type: "uint256"},
		},
	}
}
