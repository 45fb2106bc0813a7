package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ChecksumLen is the length of a checksum in bytes.
const ChecksumLen = sha256.Size

// Checksum identifies a handler module by the SHA-256 hash of its bytecode.
// Two nodes loading the same module always agree on it.
type Checksum [ChecksumLen]byte

// ChecksumOf hashes module bytecode.
func ChecksumOf(code []byte) Checksum {
	return sha256.Sum256(code)
}

// NewChecksum copies b, which must be exactly ChecksumLen bytes long.
func NewChecksum(b []byte) (Checksum, error) {
	var cs Checksum
	if len(b) != ChecksumLen {
		return cs, fmt.Errorf("checksum must be %d bytes, got %d", ChecksumLen, len(b))
	}
	copy(cs[:], b)
	return cs, nil
}

// ParseChecksum decodes the hex form printed by String.
func ParseChecksum(s string) (Checksum, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Checksum{}, fmt.Errorf("invalid checksum %q: %w", s, err)
	}
	return NewChecksum(b)
}

func (cs Checksum) String() string {
	return hex.EncodeToString(cs[:])
}

func (cs Checksum) Bytes() []byte {
	return cs[:]
}

// Compare orders checksums bytewise. Module listings use this order so they are
// identical across nodes.
func (cs Checksum) Compare(o Checksum) int {
	return bytes.Compare(cs[:], o[:])
}

func (cs Checksum) MarshalJSON() ([]byte, error) {
	return json.Marshal(cs.String())
}

func (cs *Checksum) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return err
	}
	parsed, err := ParseChecksum(s)
	if err != nil {
		return err
	}
	*cs = parsed
	return nil
}
