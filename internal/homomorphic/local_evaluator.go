package homomorphic

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
)

const rsaKeyBits = 2048

// LocalEvaluator is an in-process Evaluator backed by a sealed handle table.
// Ciphertext proofs are hybrid RSA-OAEP + AES-256-GCM blobs produced against
// the evaluator's public key; verified values are kept AES-GCM sealed at rest
// under a per-process data key and only unsealed transiently inside an
// operation. Result handles are derived deterministically from the operation
// and its operand handles, so replaying the same comparison yields the same
// handle.
type LocalEvaluator struct {
	privateKey *rsa.PrivateKey
	dataKey    []byte

	mu     sync.RWMutex
	sealed map[Handle][]byte
}

func NewLocalEvaluator() (*LocalEvaluator, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate evaluator key pair: %w", err)
	}

	dataKey := make([]byte, 32)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("entropy generation failed: %w", err)
	}

	return &LocalEvaluator{
		privateKey: privateKey,
		dataKey:    dataKey,
		sealed:     make(map[Handle][]byte),
	}, nil
}

// PublicKey returns the key ciphertext producers encrypt against.
func (e *LocalEvaluator) PublicKey() *rsa.PublicKey {
	return &e.privateKey.PublicKey
}

// Encrypt is the producer-side counterpart of Verify: it encodes a cleartext
// value into a proof blob and the handle bound to it. The engine never calls
// this; it exists for local tooling and tests standing in for the external
// ciphertext producer.
func (e *LocalEvaluator) Encrypt(v uint64) (Handle, []byte, error) {
	var plain [8]byte
	binary.BigEndian.PutUint64(plain[:], v)

	aesKey := make([]byte, 32)
	if _, err := rand.Read(aesKey); err != nil {
		return ZeroHandle, nil, fmt.Errorf("entropy generation failed: %w", err)
	}

	encryptedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, e.PublicKey(), aesKey, nil)
	if err != nil {
		return ZeroHandle, nil, fmt.Errorf("failed to encrypt data key: %w", err)
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return ZeroHandle, nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return ZeroHandle, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return ZeroHandle, nil, fmt.Errorf("entropy generation failed: %w", err)
	}

	proof := make([]byte, 0, len(encryptedKey)+len(nonce)+len(plain)+16)
	proof = append(proof, encryptedKey...)
	proof = append(proof, nonce...)
	proof = append(proof, aesgcm.Seal(nil, nonce, plain[:], nil)...)

	return handleForProof(proof), proof, nil
}

// Verify decodes a proof blob against its handle and registers the value for
// evaluation. The handle must be the digest of the proof; anything else, or a
// proof that fails to decrypt, is rejected.
func (e *LocalEvaluator) Verify(handle Handle, proof []byte) error {
	if !handle.Equal(handleForProof(proof)) {
		return ErrInvalidProof
	}

	v, err := e.decryptProof(proof)
	if err != nil {
		return err
	}

	return e.register(handle, v)
}

func (e *LocalEvaluator) FromPlaintext(v uint64) (Handle, error) {
	h := deriveHandle("plain", HandleFromPlain(v), ZeroHandle, ZeroHandle)
	if err := e.register(h, v); err != nil {
		return ZeroHandle, err
	}
	return h, nil
}

func (e *LocalEvaluator) Ge(a, b Handle) (Handle, error) {
	return e.compare("ge", a, b, func(x, y uint64) uint64 {
		if x >= y {
			return 1
		}
		return 0
	})
}

func (e *LocalEvaluator) Gt(a, b Handle) (Handle, error) {
	return e.compare("gt", a, b, func(x, y uint64) uint64 {
		if x > y {
			return 1
		}
		return 0
	})
}

func (e *LocalEvaluator) And(a, b Handle) (Handle, error) {
	return e.compare("and", a, b, func(x, y uint64) uint64 {
		if x != 0 && y != 0 {
			return 1
		}
		return 0
	})
}

// Select returns the handle of the chosen operand unchanged. The caller
// learns which branch was taken only if it compares the result against an
// operand handle it already holds; the condition value itself stays sealed.
func (e *LocalEvaluator) Select(cond, a, b Handle) (Handle, error) {
	c, err := e.unseal(cond)
	if err != nil {
		return ZeroHandle, err
	}
	if c != 0 {
		return a, nil
	}
	return b, nil
}

func (e *LocalEvaluator) compare(op string, a, b Handle, f func(x, y uint64) uint64) (Handle, error) {
	x, err := e.unseal(a)
	if err != nil {
		return ZeroHandle, err
	}
	y, err := e.unseal(b)
	if err != nil {
		return ZeroHandle, err
	}

	h := deriveHandle(op, a, b, ZeroHandle)
	if err := e.register(h, f(x, y)); err != nil {
		return ZeroHandle, err
	}
	return h, nil
}

func (e *LocalEvaluator) register(h Handle, v uint64) error {
	sealed, err := e.seal(v)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.sealed[h] = sealed
	e.mu.Unlock()
	return nil
}

func (e *LocalEvaluator) seal(v uint64) ([]byte, error) {
	block, err := aes.NewCipher(e.dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("entropy generation failed: %w", err)
	}

	var plain [8]byte
	binary.BigEndian.PutUint64(plain[:], v)
	return append(nonce, aesgcm.Seal(nil, nonce, plain[:], nil)...), nil
}

func (e *LocalEvaluator) unseal(h Handle) (uint64, error) {
	e.mu.RLock()
	sealed, ok := e.sealed[h]
	e.mu.RUnlock()
	if !ok {
		return 0, ErrUnknownHandle
	}

	block, err := aes.NewCipher(e.dataKey)
	if err != nil {
		return 0, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return 0, fmt.Errorf("failed to create GCM: %w", err)
	}
	if len(sealed) < aesgcm.NonceSize() {
		return 0, fmt.Errorf("sealed record too short for handle %s", h)
	}

	plain, err := aesgcm.Open(nil, sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():], nil)
	if err != nil {
		return 0, fmt.Errorf("failed to unseal value: %w", err)
	}
	if len(plain) != 8 {
		return 0, fmt.Errorf("invalid sealed value length: expected 8 bytes, got %d", len(plain))
	}

	return binary.BigEndian.Uint64(plain), nil
}

func (e *LocalEvaluator) decryptProof(proof []byte) (uint64, error) {
	keyLen := e.privateKey.Size()
	if len(proof) < keyLen+12 {
		return 0, ErrInvalidProof
	}

	aesKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, e.privateKey, proof[:keyLen], nil)
	if err != nil {
		return 0, ErrInvalidProof
	}
	if len(aesKey) != 32 {
		return 0, ErrInvalidProof
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return 0, ErrInvalidProof
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return 0, ErrInvalidProof
	}
	rest := proof[keyLen:]
	if len(rest) < aesgcm.NonceSize() {
		return 0, ErrInvalidProof
	}

	plain, err := aesgcm.Open(nil, rest[:aesgcm.NonceSize()], rest[aesgcm.NonceSize():], nil)
	if err != nil || len(plain) != 8 {
		return 0, ErrInvalidProof
	}

	return binary.BigEndian.Uint64(plain), nil
}

func handleForProof(proof []byte) Handle {
	return Handle(sha256.Sum256(proof))
}

func deriveHandle(op string, a, b, c Handle) Handle {
	h := sha256.New()
	h.Write([]byte(op))
	h.Write(a[:])
	h.Write(b[:])
	h.Write(c[:])
	return Handle(sha256.Sum256(h.Sum(nil)))
}
