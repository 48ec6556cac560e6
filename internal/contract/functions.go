// Package contract describes the read-only contract functions the service can
// cache, how their inputs are resolved, and how cache keys are derived from them.
package contract

import (
	"fmt"
	"time"
)

// Function identifies a whitelisted view function
type Function int

const (
	FuncName Function = iota
	FuncSymbol
	FuncTokenURI
	FuncOwner
	FuncOwnerOf
	FuncTotalSupply
	FuncBalanceOf
	FuncGetCreatorCount

	numFunctions
)

// ParamRule defines which named request inputs become positional call parameters
type ParamRule int

const (
	// NoParams - the function takes no arguments
	NoParams ParamRule = iota + 1
	// TokenIDParam - a single uint256 read from the "tokenId" input
	TokenIDParam
	// AddressParam - a single address read from the "address" input
	AddressParam
)

// OutputKind defines how a function's single return value is decoded
type OutputKind int

const (
	OutputString OutputKind = iota + 1
	OutputUint256
	OutputAddress
)

// Descriptor is the typed call descriptor of a whitelisted function
type Descriptor struct {
	Function Function
	Method   string // ABI method name
	TTL      time.Duration
	Params   ParamRule
	Output   OutputKind
}

// descriptors is indexed by Function; init verifies every slot is filled
var descriptors = [numFunctions]Descriptor{
	FuncName:            {FuncName, "name", 24 * time.Hour, NoParams, OutputString},
	FuncSymbol:          {FuncSymbol, "symbol", 24 * time.Hour, NoParams, OutputString},
	FuncTokenURI:        {FuncTokenURI, "tokenURI", time.Hour, TokenIDParam, OutputString},
	FuncOwner:           {FuncOwner, "owner", 5 * time.Minute, NoParams, OutputAddress},
	FuncOwnerOf:         {FuncOwnerOf, "ownerOf", 5 * time.Minute, TokenIDParam, OutputAddress},
	FuncTotalSupply:     {FuncTotalSupply, "totalSupply", 5 * time.Minute, NoParams, OutputUint256},
	FuncBalanceOf:       {FuncBalanceOf, "balanceOf", time.Minute, AddressParam, OutputUint256},
	FuncGetCreatorCount: {FuncGetCreatorCount, "getCreatorCount", 5 * time.Minute, NoParams, OutputUint256},
}

var byMethod = make(map[string]Function, numFunctions)

func init() {
	for i, d := range descriptors {
		if d.Method == "" || d.TTL <= 0 || d.Params == 0 || d.Output == 0 || d.Function != Function(i) {
			panic(fmt.Sprintf("contract: incomplete descriptor for function %d", i))
		}
		byMethod[d.Method] = d.Function
	}
}

// ParseFunction looks up a function by its ABI method name (case-sensitive)
func ParseFunction(name string) (Function, bool) {
	fn, ok := byMethod[name]
	return fn, ok
}

// Functions returns all whitelisted functions in table order
func Functions() []Function {
	fns := make([]Function, numFunctions)
	for i := range fns {
		fns[i] = Function(i)
	}
	return fns
}

// Valid returns true if fn is one of the whitelisted functions
func (fn Function) Valid() bool {
	return fn >= 0 && fn < numFunctions
}

// Describe returns the call descriptor of fn. It panics on an invalid function;
// callers holding untrusted values must check Valid first.
func (fn Function) Describe() Descriptor {
	if !fn.Valid() {
		panic(fmt.Sprintf("contract: unknown function %d", int(fn)))
	}
	return descriptors[fn]
}

// TTL returns the fixed cache lifetime of fn
func (fn Function) TTL() time.Duration {
	return fn.Describe().TTL
}

// String returns the ABI method name
func (fn Function) String() string {
	if !fn.Valid() {
		return fmt.Sprintf("Function(%d)", int(fn))
	}
	return descriptors[fn].Method
}
