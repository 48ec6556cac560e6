package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validator gates inbound requests on address format, the optional
// contract allow-list and the function whitelist.
type Validator struct {
	allowed map[string]struct{}
}

// NewValidator creates a Validator. An empty allow-list admits every well-formed address.
func NewValidator(allowList []string) *Validator {
	allowed := make(map[string]struct{}, len(allowList))
	for _, addr := range allowList {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			allowed[normalizeAddress(addr)] = struct{}{}
		}
	}
	return &Validator{allowed: allowed}
}

// ValidateAddress returns the lowercased address or a rejection
func (v *Validator) ValidateAddress(address string) (string, error) {
	if !IsAddress(address) {
		return "", ErrInvalidAddress
	}

	normalized := normalizeAddress(address)

	if len(v.allowed) > 0 {
		if _, ok := v.allowed[normalized]; !ok {
			return "", ErrNotWhitelisted
		}
	}
	return normalized, nil
}

// Validate checks the address first, so an address outside the allow-list is
// refused regardless of the function requested.
func (v *Validator) Validate(address, functionName string) (string, Function, error) {
	normalized, err := v.ValidateAddress(address)
	if err != nil {
		return "", 0, err
	}

	fn, ok := ParseFunction(functionName)
	if !ok {
		return "", 0, ErrUnsupportedFunction
	}
	return normalized, fn, nil
}

// IsOpen returns true when no allow-list is configured
func (v *Validator) IsOpen() bool {
	return len(v.allowed) == 0
}

// IsAddress reports whether s is a 20-byte hex address. All-lowercase and
// all-uppercase forms are accepted as is; a mixed-case form must carry a
// valid EIP-55 checksum.
func IsAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hex == strings.ToLower(hex) || hex == strings.ToUpper(hex) {
		return true
	}
	return common.HexToAddress(hex).Hex()[2:] == hex
}

// normalizeAddress lowercases and adds the 0x prefix when missing
func normalizeAddress(address string) string {
	normalized := strings.ToLower(address)
	if !strings.HasPrefix(normalized, "0x") {
		normalized = "0x" + normalized
	}
	return normalized
}
