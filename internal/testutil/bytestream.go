package testutil

// ByteStream reads bytes sequentially from a byte slice.
//
// Fuzz tests use it to derive package fixtures from fuzz input. Once the
// stream is exhausted every read returns a zero value, so the same input
// always yields the same fixtures.
type ByteStream struct {
	bytes []byte
	pos   int
}

// NewByteStream creates a stream over b.
func NewByteStream(b []byte) *ByteStream {
	return &ByteStream{bytes: b}
}

// HasMore reports whether unread bytes remain.
func (s *ByteStream) HasMore() bool {
	return s.pos < len(s.bytes)
}

// NextByte returns the next byte, or 0 if exhausted.
func (s *ByteStream) NextByte() byte {
	if s.pos >= len(s.bytes) {
		return 0
	}

	v := s.bytes[s.pos]
	s.pos++

	return v
}

// NextInt returns a value in [0, maxVal) derived from the next byte.
func (s *ByteStream) NextInt(maxVal int) int {
	if maxVal <= 0 {
		return 0
	}

	return int(s.NextByte()) % maxVal
}

// NextBool returns a boolean derived from the next byte.
func (s *ByteStream) NextBool() bool {
	return s.NextByte()&1 == 1
}

// Pick returns one element of choices.
func Pick[T any](s *ByteStream, choices []T) T {
	return choices[s.NextInt(len(choices))]
}

// PickSome returns up to maxN elements of choices, possibly repeated.
func PickSome[T any](s *ByteStream, choices []T, maxN int) []T {
	n := s.NextInt(maxN + 1)
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	for i := range out {
		out[i] = Pick(s, choices)
	}

	return out
}
