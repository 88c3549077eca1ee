package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFixedBytes is the capacity of a FixedByteArray.
// Consensus-fixed: changing it changes the wire format.
const MaxFixedBytes = 63

// Codec errors.
var (
	ErrCapacityExceeded = errors.New("length exceeds fixed byte array capacity")
	ErrTruncated        = errors.New("truncated fixed byte array")
)

// FixedByteArray is a variable-length byte blob with a fixed 63-byte
// capacity. It is embedded in consensus-critical structures (e.g. the
// auxiliary proof-of-work field of a block header) where a growable
// buffer would make decode cost attacker-controlled. The in-memory size
// is always 64 bytes regardless of content.
//
// The zero value is an empty array and ready to use.
type FixedByteArray struct {
	elems [MaxFixedBytes]byte
	used  uint8
}

// NewFixedByteArray returns an empty FixedByteArray.
func NewFixedByteArray() FixedByteArray {
	return FixedByteArray{}
}

// FixedByteArrayFromBytes copies b into a new FixedByteArray.
// Returns ErrCapacityExceeded if b is longer than MaxFixedBytes.
func FixedByteArrayFromBytes(b []byte) (FixedByteArray, error) {
	if len(b) > MaxFixedBytes {
		return FixedByteArray{}, fmt.Errorf("%w: got %d bytes, max %d", ErrCapacityExceeded, len(b), MaxFixedBytes)
	}
	var fa FixedByteArray
	copy(fa.elems[:], b)
	fa.used = uint8(len(b))
	return fa, nil
}

// AsSlice returns a read-only view of the first Len() bytes.
// Bytes beyond Len() are never exposed.
func (fa *FixedByteArray) AsSlice() []byte {
	return fa.elems[:fa.used]
}

// Len returns the number of logically valid bytes.
func (fa *FixedByteArray) Len() int {
	return int(fa.used)
}

// IsEmpty returns true if the array holds no bytes.
func (fa *FixedByteArray) IsEmpty() bool {
	return fa.used == 0
}

// IsFull returns true if the array is at capacity.
func (fa *FixedByteArray) IsFull() bool {
	return int(fa.used) == MaxFixedBytes
}

// Equal compares logical content only; unused trailing storage does not
// participate.
func (fa *FixedByteArray) Equal(other *FixedByteArray) bool {
	return bytes.Equal(fa.AsSlice(), other.AsSlice())
}

// Encode writes the wire form: one length byte followed by exactly
// Len() raw bytes. Total bytes written = 1 + Len().
func (fa *FixedByteArray) Encode(w io.Writer) error {
	if _, err := w.Write([]byte{fa.used}); err != nil {
		return err
	}
	if _, err := w.Write(fa.elems[:fa.used]); err != nil {
		return err
	}
	return nil
}

// Decode reads the wire form from r. The declared length is validated
// against MaxFixedBytes BEFORE any payload byte is read, so a stream
// advertising an oversized length is rejected in O(1) without
// allocation. A stream offering fewer payload bytes than declared fails
// with ErrTruncated.
func (fa *FixedByteArray) Decode(r io.Reader) error {
	var lenByte [1]byte
	if _, err := io.ReadFull(r, lenByte[:]); err != nil {
		return fmt.Errorf("%w: missing length byte", ErrTruncated)
	}
	n := int(lenByte[0])
	if n > MaxFixedBytes {
		return fmt.Errorf("%w: declared length %d, max %d", ErrCapacityExceeded, n, MaxFixedBytes)
	}
	var elems [MaxFixedBytes]byte
	if _, err := io.ReadFull(r, elems[:n]); err != nil {
		return fmt.Errorf("%w: declared %d payload bytes: %v", ErrTruncated, n, err)
	}
	fa.elems = elems
	fa.used = uint8(n)
	return nil
}

// String returns the hex-encoded content.
func (fa FixedByteArray) String() string {
	return hex.EncodeToString(fa.AsSlice())
}

// MarshalJSON encodes the content as a hex string.
func (fa FixedByteArray) MarshalJSON() ([]byte, error) {
	return json.Marshal(fa.String())
}

// UnmarshalJSON decodes a hex string, enforcing the same capacity bound
// as FixedByteArrayFromBytes.
func (fa *FixedByteArray) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid fixed byte array hex: %w", err)
	}
	decoded, err := FixedByteArrayFromBytes(b)
	if err != nil {
		return err
	}
	*fa = decoded
	return nil
}
