package conversation

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/celerix-dev/celerix-ivr/internal/vault"
)

// Format selects the serialisation inside the session token.
type Format string

const (
	// FormatJSON is a plain JSON array of {role, content}.
	FormatJSON Format = "json"
	// FormatCBOR is base64url CBOR, roughly a third smaller for long transcripts.
	FormatCBOR Format = "cbor"
)

// ParseFormat maps a config value to a Format, defaulting to JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown session token format %q", s)
	}
}

// Codec turns transcripts into opaque session tokens and back.
// With a Sealer the token is additionally encrypted and authenticated.
type Codec struct {
	Format Format
	Sealer *vault.Sealer
}

// Encode serialises t. An empty transcript encodes to a valid token.
func (c *Codec) Encode(t Transcript) (string, error) {
	if t == nil {
		t = Transcript{}
	}

	var payload []byte
	var err error
	switch c.format() {
	case FormatCBOR:
		payload, err = cbor.Marshal(t)
	default:
		payload, err = json.Marshal(t)
	}
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	if c.Sealer != nil {
		return c.Sealer.Seal(payload)
	}
	if c.format() == FormatCBOR {
		return base64.RawURLEncoding.EncodeToString(payload), nil
	}
	return string(payload), nil
}

// Decode reverses Encode. An empty or blank token is the first turn and yields an empty transcript.
func (c *Codec) Decode(token string) (Transcript, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Transcript{}, nil
	}

	var payload []byte
	var err error
	switch {
	case c.Sealer != nil:
		payload, err = c.Sealer.Open(token)
	case c.format() == FormatCBOR:
		payload, err = base64.RawURLEncoding.DecodeString(token)
	default:
		payload = []byte(token)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var t Transcript
	switch c.format() {
	case FormatCBOR:
		err = cbor.Unmarshal(payload, &t)
	default:
		err = json.Unmarshal(payload, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if t == nil {
		t = Transcript{}
	}
	return t, nil
}

func (c *Codec) format() Format {
	if c == nil || c.Format == "" {
		return FormatJSON
	}
	return c.Format
}
