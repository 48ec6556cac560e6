package contract

// ErrorKind is the machine-readable category of a rejected request
type ErrorKind string

const (
	KindInvalidAddress      ErrorKind = "invalid_address"
	KindNotWhitelisted      ErrorKind = "not_whitelisted"
	KindUnsupportedFunction ErrorKind = "unsupported_function"
	KindInvalidParameter    ErrorKind = "invalid_parameter"
)

// ValidationError rejects a request before any cache or upstream interaction
type ValidationError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// Common rejections
var (
	ErrInvalidAddress      = &ValidationError{Kind: KindInvalidAddress, Message: "Invalid contract address"}
	ErrNotWhitelisted      = &ValidationError{Kind: KindNotWhitelisted, Message: "Contract not whitelisted"}
	ErrUnsupportedFunction = &ValidationError{Kind: KindUnsupportedFunction, Message: "Unsupported function"}
)

// NewInvalidParameter creates a rejection for a missing or malformed call input
func NewInvalidParameter(name string) *ValidationError {
	return &ValidationError{
		Kind:    KindInvalidParameter,
		Message: "Invalid parameter " + name,
	}
}
