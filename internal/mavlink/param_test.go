package mavlink

import "testing"

func TestParamEncodeCCast(t *testing.T) {
	p := NewUint16(1500)

	encoded, err := p.Encode(EncodingCCast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if encoded != 1500 {
		t.Fatalf("expected 1500, got %v", encoded)
	}
}

func TestParamEncodeByteWise(t *testing.T) {
	p := NewUint16(1500)

	encoded, err := p.Encode(EncodingByteWise)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := DecodeParam(ParamTypeUint16, encoded, EncodingByteWise)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.AsUint16() != 1500 {
		t.Fatalf("round-trip mismatch: expected 1500, got %v", decoded.AsUint16())
	}
}

func TestParamEncode64BitUnsupported(t *testing.T) {
	for _, p := range []ParamValue{NewUint64(1), NewInt64(1), NewReal64(1)} {
		if _, err := p.Encode(EncodingCCast); err != Err64BitUnrepresentable {
			t.Fatalf("expected Err64BitUnrepresentable for CCast, got %v", err)
		}
		if _, err := p.Encode(EncodingByteWise); err != Err64BitUnrepresentable {
			t.Fatalf("expected Err64BitUnrepresentable for ByteWise, got %v", err)
		}
	}
}

func TestParamEncodeUnsupportedEncoding(t *testing.T) {
	p := NewUint8(1)
	if _, err := p.Encode(EncodingUnsupported); err != ErrUnsupportedEncoding {
		t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
	}
}

func TestSetValueRoundTrip(t *testing.T) {
	p := NewUint16(870)

	if err := p.SetValue(NewUint16(2130), EncodingCCast); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AsUint16() != 2130 {
		t.Fatalf("expected 2130, got %v", p.AsUint16())
	}
}

func TestParamIDRoundTrip(t *testing.T) {
	name := "SERVO10_FUNCTION"
	id := ParamNameToID(name)
	if got := ParamIDToName(id); got != name {
		t.Fatalf("expected %q, got %q", name, got)
	}
}

func TestParamIDTruncatesAt16Bytes(t *testing.T) {
	name := "THIS_NAME_IS_WAY_TOO_LONG_FOR_A_PARAM"
	id := ParamNameToID(name)
	if got := ParamIDToName(id); got != name[:16] {
		t.Fatalf("expected truncation to %q, got %q", name[:16], got)
	}
}

func TestParamCacheInsertionOrder(t *testing.T) {
	c := newParamCache(4)
	c.set(Parameter{Name: "B"})
	c.set(Parameter{Name: "A"})
	c.set(Parameter{Name: "B"})

	all := c.all()
	if len(all) != 2 {
		t.Fatalf("expected 2 params, got %d", len(all))
	}
	if all[0].Name != "B" || all[1].Name != "A" {
		t.Fatalf("expected insertion order [B, A], got %v", all)
	}
}
