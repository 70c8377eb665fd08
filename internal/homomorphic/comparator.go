package homomorphic

import "fmt"

// Comparator implements the bid acceptance protocol over opaque handles.
// All value comparisons go through the injected Evaluator; the comparator is
// a pure function of handles and performs no decryption.
type Comparator struct {
	eval Evaluator
}

func NewComparator(eval Evaluator) *Comparator {
	return &Comparator{eval: eval}
}

// Evaluator exposes the underlying evaluator for proof verification.
func (c *Comparator) Evaluator() Evaluator {
	return c.eval
}

// AcceptanceResult is the outcome of running the acceptance protocol.
// Accepted is inferred from handle identity of the selected value: if the
// select left the committed highest unchanged, the bid lost. The condition
// itself is never decrypted.
type AcceptanceResult struct {
	NewHighest Handle
	Accepted   bool
}

// EvaluateBid runs the confidential acceptance protocol:
//
//	meetsReserve = bid >= reserve
//	isHigherBid  = bid > currentHighest
//	isValid      = meetsReserve AND isHigherBid
//	newHighest   = select(isValid, bid, currentHighest)
//
// A zero currentHighest means no bid has been accepted yet; it is substituted
// with an evaluable zero so the first bid at or above reserve wins.
func (c *Comparator) EvaluateBid(bid, reserve, currentHighest Handle) (AcceptanceResult, error) {
	if currentHighest.IsZero() {
		zero, err := c.eval.FromPlaintext(0)
		if err != nil {
			return AcceptanceResult{}, fmt.Errorf("import zero highest: %w", err)
		}
		currentHighest = zero
	}

	meetsReserve, err := c.eval.Ge(bid, reserve)
	if err != nil {
		return AcceptanceResult{}, fmt.Errorf("ge(bid, reserve): %w", err)
	}

	isHigherBid, err := c.eval.Gt(bid, currentHighest)
	if err != nil {
		return AcceptanceResult{}, fmt.Errorf("gt(bid, highest): %w", err)
	}

	isValid, err := c.eval.And(meetsReserve, isHigherBid)
	if err != nil {
		return AcceptanceResult{}, fmt.Errorf("and(reserve, higher): %w", err)
	}

	newHighest, err := c.eval.Select(isValid, bid, currentHighest)
	if err != nil {
		return AcceptanceResult{}, fmt.Errorf("select: %w", err)
	}

	return AcceptanceResult{
		NewHighest: newHighest,
		Accepted:   !newHighest.Equal(currentHighest),
	}, nil
}
