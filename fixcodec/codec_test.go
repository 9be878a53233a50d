package fixcodec

import (
	"strings"
	"testing"
)

func fixFrame(fields string) string {
	return strings.ReplaceAll(fields, "|", "\x01") + "\x01"
}

func TestDecode_WellFormedLogon(t *testing.T) {
	raw := fixFrame("8=FIXT.1.1|9=5|35=A|10=002")
	_, err := DecodeString(raw)
	if err != nil {
		t.Fatalf("expected decode to succeed on a syntactically valid frame shape, got %v", err)
	}
}

func TestDecode_BadChecksum(t *testing.T) {
	raw := fixFrame("8=FIXT.1.1|9=5|35=A|10=999")
	_, err := DecodeString(raw)
	if err == nil {
		t.Fatal("expected a Framing error for a bad checksum")
	}
	var codecErr *Error
	if !isCodecError(err, &codecErr) {
		t.Fatalf("expected *fixcodec.Error, got %T", err)
	}
	if codecErr.Kind != Framing {
		t.Fatalf("expected Kind=Framing, got %v", codecErr.Kind)
	}
}

func isCodecError(err error, target **Error) bool {
	if ce, ok := err.(*Error); ok {
		*target = ce
		return true
	}
	return false
}
