// Package fingerprint computes the content hashes used as dedup keys in the
// metadata store. A fingerprint is a pure function of the payload bytes, so
// byte-identical documents fetched for different entities collapse to one
// stored row.
package fingerprint

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gowebpki/jcs"
)

// Size is the fingerprint length in bytes
const Size = 32

// Fingerprint is the lowercase hex form of a keccak-256 content hash
type Fingerprint string

// New returns the fingerprint of a raw byte payload
func New(raw []byte) Fingerprint {
	return Fingerprint(hex.EncodeToString(crypto.Keccak256(raw)))
}

// FromJSON fingerprints a document that arrives already parsed. The value is
// marshaled and canonicalized per RFC 8785 before hashing, so key order and
// whitespace never influence the fingerprint. The canonical bytes are
// returned so the caller can store exactly what was hashed.
func FromJSON(v any) (Fingerprint, []byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}

	return New(canonical), canonical, nil
}

// Parse validates a hex fingerprint string
func Parse(s string) (Fingerprint, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	if len(b) != Size {
		return "", fmt.Errorf("invalid fingerprint length %d", len(b))
	}
	return Fingerprint(s), nil
}

func (f Fingerprint) String() string {
	return string(f)
}
