package qr

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the two badge payload fields: "studentId|studentName".
const Delimiter = "|"

var (
	// ErrMalformedPayload means a decoded string did not carry both fields.
	ErrMalformedPayload = errors.New("malformed badge payload")
	// ErrDelimiterInField rejects identities that would corrupt the wire
	// format. The payload has no escaping, so a name containing the
	// delimiter cannot round-trip.
	ErrDelimiterInField = errors.New("field contains payload delimiter")
)

// Payload is the student identity carried by a badge.
type Payload struct {
	StudentID string
	Name      string
}

// ParsePayload splits a decoded string into an identity. Only the first two
// fields are consumed; trailing fields are ignored.
func ParsePayload(s string) (Payload, error) {
	parts := strings.Split(s, Delimiter)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Payload{}, fmt.Errorf("%w: %q", ErrMalformedPayload, s)
	}
	return Payload{StudentID: parts[0], Name: parts[1]}, nil
}

// Encode renders the wire form, refusing fields that contain the delimiter.
func (p Payload) Encode() (string, error) {
	if p.StudentID == "" || p.Name == "" {
		return "", ErrMalformedPayload
	}
	if strings.Contains(p.StudentID, Delimiter) || strings.Contains(p.Name, Delimiter) {
		return "", fmt.Errorf("%w: %q", ErrDelimiterInField, p.Name)
	}
	return p.StudentID + Delimiter + p.Name, nil
}
