package homomorphic

import "errors"

// Evaluator is the minimal operation set the engine is allowed to perform on
// encrypted values. It is injected into the Comparator so resolution logic is
// testable against a fake evaluator without any real cryptography.
//
// Ge, Gt and And return boolean handles; the engine never decrypts them and
// never branches on them. Select returns the handle of the chosen operand so
// callers can detect which branch was taken only through handle identity of
// the committed value, never through the condition itself.
type Evaluator interface {
	// Ge evaluates a >= b over encrypted operands.
	Ge(a, b Handle) (Handle, error)

	// Gt evaluates a > b over encrypted operands.
	Gt(a, b Handle) (Handle, error)

	// And combines two boolean handles.
	And(a, b Handle) (Handle, error)

	// Select returns a if cond references true, else b.
	Select(cond, a, b Handle) (Handle, error)

	// Verify validates that proof correctly encodes the value referenced by
	// handle and registers the handle for later evaluation. Called once per
	// incoming ciphertext before any comparison touches it.
	Verify(handle Handle, proof []byte) error

	// FromPlaintext imports a cleartext integer as an evaluable handle.
	// Used for reserve prices and sentinels on mixed deployments.
	FromPlaintext(v uint64) (Handle, error)
}

var (
	// ErrUnknownHandle is returned when an operand was never registered
	// with the evaluator.
	ErrUnknownHandle = errors.New("unknown handle")

	// ErrInvalidProof is returned when a proof does not decode against its
	// handle.
	ErrInvalidProof = errors.New("invalid ciphertext proof")
)
