package encoding

import "testing"

func TestEUCKRRoundTrip(t *testing.T) {
	for _, s := range []string{"", "root", "프론테라", "분수_01"} {
		encoded := UTF8ToEUCKR(s)
		if got := EUCKRToUTF8(encoded); got != s {
			t.Errorf("round trip of %q = %q", s, got)
		}
	}
}

func TestEUCKRToUTF8_Known(t *testing.T) {
	// "한" in EUC-KR.
	if got := EUCKRToUTF8([]byte{0xc7, 0xd1}); got != "한" {
		t.Errorf("EUCKRToUTF8 = %q, want 한", got)
	}
}

func TestFixedStringToUTF8(t *testing.T) {
	field := make([]byte, 40)
	copy(field, UTF8ToEUCKR("집"))
	field[10] = 'x' // garbage after the terminator

	if got := FixedStringToUTF8(field); got != "집" {
		t.Errorf("FixedStringToUTF8 = %q, want 집", got)
	}
	if got := FixedStringToUTF8([]byte("no terminator")); got != "no terminator" {
		t.Errorf("FixedStringToUTF8 = %q", got)
	}
	if got := FixedStringToUTF8(nil); got != "" {
		t.Errorf("FixedStringToUTF8(nil) = %q", got)
	}
}

func TestNormalizeGRFPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{`data\Model\House.RSM`, "data/model/house.rsm"},
		{"data/texture/a.bmp", "data/texture/a.bmp"},
	}
	for _, tt := range tests {
		if got := NormalizeGRFPath(tt.in); got != tt.want {
			t.Errorf("NormalizeGRFPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
