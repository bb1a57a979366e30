package exchange

import (
	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultBaseTokenSymbol is the stake currency looked up in metadata addresses.
const DefaultBaseTokenSymbol = "USDC"

// ApplyTo fills protocol fields left empty in config and returns the keys it
// set. Configured values always win.
func (m *Metadata) ApplyTo(p *config.ProtocolConfig) []string {
	if m == nil || p == nil {
		return nil
	}
	var filled []string
	set := func(dst *string, val, name string) {
		if *dst == "" && common.IsHexAddress(val) {
			*dst = common.HexToAddress(val).Hex()
			filled = append(filled, name)
		}
	}
	set(&p.FillHasher, m.EIP712FillHasher, "fill_hasher")
	set(&p.Executor, m.ExecutorAddress, "executor")
	set(&p.BaseToken, m.BaseToken(p.ChainID, DefaultBaseTokenSymbol), "base_token")
	if m.DomainVersion != "" && p.FillDomainVersion != m.DomainVersion {
		// the exchange is the authority on which hasher version it verifies
		p.FillDomainVersion = m.DomainVersion
		filled = append(filled, "fill_domain_version")
	}
	return filled
}

// NeedsMetadata reports whether any address must come from /metadata.
func NeedsMetadata(p config.ProtocolConfig) bool {
	return p.FillHasher == "" || p.Executor == "" || p.BaseToken == ""
}
