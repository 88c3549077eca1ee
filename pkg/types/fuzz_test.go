package types

import (
	"bytes"
	"testing"
)

// FuzzFixedByteArrayDecode tests that arbitrary byte streams never panic
// the decoder and that every successful decode re-encodes to a prefix of
// the input.
func FuzzFixedByteArrayDecode(f *testing.F) {
	f.Add([]byte{0})
	f.Add([]byte{3, 1, 2, 3})
	f.Add([]byte{63})
	f.Add([]byte{64, 1, 2})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f})

	f.Fuzz(func(t *testing.T, data []byte) {
		var fa FixedByteArray
		if err := fa.Decode(bytes.NewReader(data)); err != nil {
			return // Rejected input is expected.
		}
		if fa.Len() > MaxFixedBytes {
			t.Fatalf("decoded length %d exceeds capacity", fa.Len())
		}
		var buf bytes.Buffer
		if err := fa.Encode(&buf); err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if !bytes.Equal(buf.Bytes(), data[:buf.Len()]) {
			t.Fatalf("re-encoded bytes differ from consumed input")
		}
	})
}
