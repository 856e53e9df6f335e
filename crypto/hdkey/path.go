// Package hdkey implements hierarchical (BIP32/SLIP-10) key derivation for
// the curves supported by the card, plus derivation-path parsing.
package hdkey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

const (
	HardenedOffset uint32 = 0x80000000

	masterSymbol      = "m"
	hardenedSymbol    = "'"
	altHardenedSymbol = "’"
	separatorSymbol   = "/"
)

// DerivationPath is a parsed BIP32 path. Nodes keep the hardened bit.
type DerivationPath struct {
	Nodes []uint32
}

// ParseDerivationPath parses paths of the form "m/44'/0'/0'/1/2". Both the
// ASCII apostrophe and the typographic one mark hardened nodes.
func ParseDerivationPath(raw string) (DerivationPath, error) {
	chunks := strings.Split(strings.TrimSpace(raw), separatorSymbol)
	if len(chunks) < 2 || strings.ToLower(chunks[0]) != masterSymbol {
		return DerivationPath{}, pathError(raw)
	}

	nodes := make([]uint32, 0, len(chunks)-1)
	for _, chunk := range chunks[1:] {
		chunk = strings.ReplaceAll(chunk, altHardenedSymbol, hardenedSymbol)
		hardened := strings.HasSuffix(chunk, hardenedSymbol)
		if hardened {
			chunk = strings.TrimSuffix(chunk, hardenedSymbol)
		}
		index, err := strconv.ParseUint(chunk, 10, 32)
		if err != nil || uint32(index) >= HardenedOffset {
			return DerivationPath{}, pathError(raw)
		}
		node := uint32(index)
		if hardened {
			node += HardenedOffset
		}
		nodes = append(nodes, node)
	}
	return DerivationPath{Nodes: nodes}, nil
}

func (p DerivationPath) String() string {
	var sb strings.Builder
	sb.WriteString(masterSymbol)
	for _, node := range p.Nodes {
		sb.WriteString(separatorSymbol)
		if node >= HardenedOffset {
			sb.WriteString(strconv.FormatUint(uint64(node-HardenedOffset), 10))
			sb.WriteString(hardenedSymbol)
		} else {
			sb.WriteString(strconv.FormatUint(uint64(node), 10))
		}
	}
	return sb.String()
}

// Serialize encodes the path for the wallet-derivation TLV field: each node
// as a big-endian uint32.
func (p DerivationPath) Serialize() []byte {
	out := make([]byte, 0, len(p.Nodes)*4)
	for _, node := range p.Nodes {
		out = append(out, byte(node>>24), byte(node>>16), byte(node>>8), byte(node))
	}
	return out
}

func pathError(raw string) error {
	return sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailed,
		fmt.Sprintf("invalid derivation path %q", raw))
}
