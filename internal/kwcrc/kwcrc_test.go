package kwcrc

import "testing"

// Expected values are transcribed from kwcrc.h so a regression in the
// update/finish rule is caught immediately.
func TestHashKnownValues(t *testing.T) {
	cases := map[string]uint32{
		"pps":     0x00707073,
		"DR":      0x00004416,
		"cca":     0x00636361,
		"gps":     0x00677E64,
		"hello":   0x46DBE30A,
		"msgtype": 0xBD07399C,
	}
	for s, want := range cases {
		if got := Hash(s); got != want {
			t.Errorf("Hash(%q) = %#08X, want %#08X", s, got, want)
		}
	}
}

func TestFinishNeverReturnsZero(t *testing.T) {
	if finish(0) != 1 {
		t.Error("finish(0) must bump to 1")
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry([]string{"msgtype", "DR", "cca"})
	h := Hash("DR")
	name, ok := r.Lookup(h)
	if !ok || name != "DR" {
		t.Errorf("Lookup(%#08X) = %q, %v", h, name, ok)
	}
	if _, ok := r.Lookup(0xDEADBEEF); ok {
		t.Error("expected no match for an unregistered hash")
	}
}

func TestRegistryIdempotentOnDuplicateField(t *testing.T) {
	// Registering the same field name twice is not a collision and
	// must not panic.
	r := NewRegistry([]string{"msgtype", "msgtype"})
	if name, ok := r.Lookup(Hash("msgtype")); !ok || name != "msgtype" {
		t.Errorf("Lookup after duplicate registration = %q, %v", name, ok)
	}
}
