package object

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type Kind string

// KindBlob is the only kind the tool writes today. Decode accepts any
// well-formed kind so new kinds need no format change.
const KindBlob Kind = "blob"

var (
	ErrInvalidKind     = errors.New("invalid object kind")
	ErrMalformedObject = errors.New("malformed object")
)

type Object struct {
	Kind Kind
	Data []byte
}

// ValidateKind reports whether k can appear in an envelope header.
// Whitespace is rejected as a whole, not just ' ', so every encodable
// kind decodes back to itself.
func ValidateKind(k Kind) error {
	if k == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKind)
	}
	if strings.IndexFunc(string(k), func(r rune) bool { return r == 0 || unicode.IsSpace(r) }) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
	return nil
}

// Encode returns the envelope "<kind> <len>\x00<data>".
func Encode(obj *Object) ([]byte, error) {
	if err := ValidateKind(obj.Kind); err != nil {
		return nil, err
	}
	length := strconv.Itoa(len(obj.Data))

	envelope := make([]byte, 0, len(obj.Kind)+1+len(length)+1+len(obj.Data))
	envelope = append(envelope, obj.Kind...)
	envelope = append(envelope, ' ')
	envelope = append(envelope, length...)
	envelope = append(envelope, 0)
	envelope = append(envelope, obj.Data...)
	return envelope, nil
}

// Decode splits an envelope at its first NUL. The returned Data aliases
// envelope.
func Decode(envelope []byte) (*Object, error) {
	nullIdx := bytes.IndexByte(envelope, 0)
	if nullIdx == -1 {
		return nil, fmt.Errorf("%w: no null byte", ErrMalformedObject)
	}

	header := string(envelope[:nullIdx])
	data := envelope[nullIdx+1:]

	parts := strings.Fields(header)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: invalid header %q", ErrMalformedObject, header)
	}

	size, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid size %q", ErrMalformedObject, parts[1])
	}
	if size != uint64(len(data)) {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedObject, size, len(data))
	}

	return &Object{
		Kind: Kind(parts[0]),
		Data: data,
	}, nil
}
