// Package address parses Flow account addresses and classifies them into the
// network that issued them.
//
// Flow derives account addresses from a [64,45] linear code. Each network owns
// one coset of that code, identified by its codeword, so the network of an
// address can be recovered offline: XOR the address with a network codeword and
// check whether the difference has a zero syndrome under the parity-check
// matrix. The code has a minimum distance large enough that a single flipped
// bit always yields a non-member.
//
//	addr, err := address.Parse("0xf8d6e0586b0a20c7")
//	net := address.ClassifyAddress(addr) // domain.NetworkEmulator
//
// Classification is pure and safe for concurrent use.
package address

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// HexLength is the number of hex digits in a canonical address.
const HexLength = 16

// ErrInvalidFormat is returned by Parse for anything other than an optional
// 0x prefix followed by exactly 16 hex digits.
var ErrInvalidFormat = errors.New("invalid address format")

// Address is a Flow account address in canonical big-endian form.
type Address uint64

// String renders the address as 0x followed by 16 lowercase hex digits.
func (a Address) String() string {
	return fmt.Sprintf("0x%016x", uint64(a))
}

// Parse validates and decodes an address string.
func Parse(s string) (Address, error) {
	hex := s
	if strings.HasPrefix(hex, "0x") || strings.HasPrefix(hex, "0X") {
		hex = hex[2:]
	}
	if len(hex) != HexLength {
		return 0, fmt.Errorf("%w: %q: want %d hex digits", ErrInvalidFormat, s, HexLength)
	}
	// ParseUint alone would accept a sign or underscores.
	for i := 0; i < len(hex); i++ {
		if !isHexDigit(hex[i]) {
			return 0, fmt.Errorf("%w: %q: bad digit %q", ErrInvalidFormat, s, hex[i])
		}
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidFormat, s, err)
	}
	return Address(v), nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// Classify returns the network that issued the address, or NetworkUnknown when
// the string is malformed or the address belongs to no known network.
func Classify(s string) domain.NetworkID {
	a, err := Parse(s)
	if err != nil {
		return domain.NetworkUnknown
	}
	return ClassifyAddress(a)
}

// ClassifyAddress returns the first known network the address is a member of.
func ClassifyAddress(a Address) domain.NetworkID {
	for _, net := range domain.KnownNetworks {
		if IsValidFor(a, net) {
			return net
		}
	}
	return domain.NetworkUnknown
}

// IsValidFor reports whether the address belongs to the given network.
// The bare codeword itself is reserved and never valid.
func IsValidFor(a Address, net domain.NetworkID) bool {
	codeword, ok := Codewords[net]
	if !ok {
		return false
	}
	d := codeword ^ uint64(a)
	if d == 0 {
		return false
	}
	return syndrome(d) == 0
}

// syndrome multiplies the 64-bit GF(2) vector d by the parity-check matrix.
func syndrome(d uint64) uint32 {
	var s uint32
	for i := 0; i < linearCodeN; i++ {
		if d&1 == 1 {
			s ^= parityCheckColumns[i]
		}
		d >>= 1
	}
	return s
}
