package homomorphic

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeEvaluator keeps every value in the clear. It exists to prove the
// comparator protocol is correct independent of any real cryptography.
type fakeEvaluator struct {
	values map[Handle]uint64
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{values: make(map[Handle]uint64)}
}

func (f *fakeEvaluator) handleFor(tag string, v uint64) Handle {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	h := Handle(sha256.Sum256(append([]byte(tag), buf[:]...)))
	f.values[h] = v
	return h
}

func (f *fakeEvaluator) Ge(a, b Handle) (Handle, error) {
	if f.values[a] >= f.values[b] {
		return f.handleFor("ge-true", f.values[a]), nil
	}
	return f.handleFor("ge-false", 0), nil
}

func (f *fakeEvaluator) Gt(a, b Handle) (Handle, error) {
	if f.values[a] > f.values[b] {
		return f.handleFor("gt-true", f.values[a]), nil
	}
	return f.handleFor("gt-false", 0), nil
}

func (f *fakeEvaluator) And(a, b Handle) (Handle, error) {
	if f.values[a] != 0 && f.values[b] != 0 {
		return f.handleFor("and-true", 1), nil
	}
	return f.handleFor("and-false", 0), nil
}

func (f *fakeEvaluator) Select(cond, a, b Handle) (Handle, error) {
	if f.values[cond] != 0 {
		return a, nil
	}
	return b, nil
}

func (f *fakeEvaluator) Verify(handle Handle, proof []byte) error {
	if len(proof) == 0 {
		return ErrInvalidProof
	}
	return nil
}

func (f *fakeEvaluator) FromPlaintext(v uint64) (Handle, error) {
	return f.handleFor("plain", v), nil
}

func (f *fakeEvaluator) register(v uint64) Handle {
	return f.handleFor("bid", v)
}

func TestEvaluateBid_AcceptsAboveReserveAndHighest(t *testing.T) {
	eval := newFakeEvaluator()
	cmp := NewComparator(eval)

	reserve := eval.register(500)
	highest := eval.register(600)
	bid := eval.register(700)

	result, err := cmp.EvaluateBid(bid, reserve, highest)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.True(t, result.NewHighest.Equal(bid))
}

func TestEvaluateBid_RejectsBelowReserve(t *testing.T) {
	eval := newFakeEvaluator()
	cmp := NewComparator(eval)

	reserve := eval.register(500)
	highest := eval.register(0)
	bid := eval.register(400)

	result, err := cmp.EvaluateBid(bid, reserve, highest)
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.True(t, result.NewHighest.Equal(highest))
}

func TestEvaluateBid_RejectsNotStrictlyGreater(t *testing.T) {
	eval := newFakeEvaluator()
	cmp := NewComparator(eval)

	reserve := eval.register(500)
	highest := eval.register(600)
	bid := eval.register(600) // equal, not strictly greater

	result, err := cmp.EvaluateBid(bid, reserve, highest)
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.True(t, result.NewHighest.Equal(highest))
}

func TestEvaluateBid_FirstBidAgainstZeroSentinel(t *testing.T) {
	eval := newFakeEvaluator()
	cmp := NewComparator(eval)

	reserve := eval.register(500)
	bid := eval.register(500) // exactly the reserve

	result, err := cmp.EvaluateBid(bid, reserve, ZeroHandle)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.True(t, result.NewHighest.Equal(bid))
}

func TestHandlePlainRoundTrip(t *testing.T) {
	h := HandleFromPlain(123456789)
	require.Equal(t, uint64(123456789), PlainFromHandle(h))
	require.False(t, h.IsZero())
	require.True(t, ZeroHandle.IsZero())
}

func TestHandleFromBytesRightAligns(t *testing.T) {
	var want [8]byte
	binary.BigEndian.PutUint64(want[:], 42)

	h := HandleFromBytes(want[:])
	require.Equal(t, uint64(42), PlainFromHandle(h))
}
