// Package fixcodec wraps github.com/quickfixgo/quickfix's wire-level decode
// and typed field access so the rest of the core deals in a small, typed
// error taxonomy (fixcodec.Error) instead of quickfix's internal reject
// types. The marketdata parser pulls the mandatory Symbol through RequireTag
// and drops a message that lacks it; the session client reads MsgType
// through RequireTag but discards its error, so a missing MsgType is
// dispatched as an empty string.
//
// Framing — the ASCII tag=value, SOH-delimited, BeginString/BodyLength/
// CheckSum envelope — and field-ordering (the standard header, and the
// insertion-order discipline within repeating groups) are entirely quickfix's
// responsibility; the builder package already relies on this (buildHeader,
// BuildMarketDataRequest's use of quickfix.NewRepeatingGroup) the same way
// this package relies on it for decode.
package fixcodec

import (
	"bytes"
	"fmt"

	"github.com/quickfixgo/quickfix"
)

// Kind classifies a decode failure per spec: Framing failures (missing SOH,
// bad checksum, wrong body length) are unrecoverable for the frame; Semantic
// failures (unknown tag in a critical position) can sometimes be skipped.
type Kind int

const (
	Framing Kind = iota
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Framing:
		return "Framing"
	case Semantic:
		return "Semantic"
	default:
		return "Unknown"
	}
}

// Error is the typed decode failure surfaced to the session reader.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fixcodec: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Decode parses a raw FIX frame into a quickfix.Message. It first checks the
// CheckSum (10) trailer against the byte sum of everything before it, then
// lets quickfix's ParseMessage validate BeginString/BodyLength; any failure
// is framing-level since the frame cannot be trusted at all.
func Decode(raw []byte) (*quickfix.Message, error) {
	trailer := bytes.LastIndex(raw, []byte("\x0110="))
	if trailer == -1 {
		return nil, &Error{Kind: Framing, Err: fmt.Errorf("missing CheckSum (10) field")}
	}
	sum := 0
	for _, b := range raw[:trailer+1] {
		sum += int(b)
	}
	got := bytes.TrimSuffix(raw[trailer+4:], []byte{0x01})
	if want := fmt.Sprintf("%03d", sum%256); string(got) != want {
		return nil, &Error{Kind: Framing, Err: fmt.Errorf("CheckSum is %s, computed %s", got, want)}
	}

	msg := quickfix.NewMessage()
	if err := quickfix.ParseMessage(msg, bytes.NewBuffer(raw)); err != nil {
		return nil, &Error{Kind: Framing, Err: err}
	}
	return msg, nil
}

// DecodeString is Decode for callers already holding a string frame (e.g.
// test fixtures built with a strings.Builder).
func DecodeString(raw string) (*quickfix.Message, error) {
	return Decode([]byte(raw))
}

// RequireTag extracts a required string field and converts "tag missing" or
// "tag malformed" into a Semantic CodecError, for callers decoding a field
// whose presence is mandated by the message type (e.g. MsgType itself).
func RequireTag(msg *quickfix.Message, tag quickfix.Tag) (string, error) {
	v, err := msg.Body.GetString(tag)
	if err == nil {
		return v, nil
	}
	if v, err2 := msg.Header.GetString(tag); err2 == nil {
		return v, nil
	}
	return "", &Error{Kind: Semantic, Err: fmt.Errorf("required tag %d missing: %w", tag, err)}
}
