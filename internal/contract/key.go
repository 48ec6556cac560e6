package contract

import "strings"

// DeriveKey builds the cache key {chainId}:{address}:{function}[:{param}...].
// The address is lowercased so checksum casing never splits a cache line.
func DeriveKey(chainID, address string, fn Function, params []string) string {
	var b strings.Builder
	b.WriteString(chainID)
	b.WriteByte(':')
	b.WriteString(strings.ToLower(address))
	b.WriteByte(':')
	b.WriteString(fn.String())
	for _, p := range params {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// JoinParams renders params the way they are recorded on a cache entry
func JoinParams(params []string) string {
	return strings.Join(params, ",")
}
