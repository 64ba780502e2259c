package mmio

import (
	"bytes"
	"testing"
)

func TestUARTWriteTHR(t *testing.T) {
	var out bytes.Buffer
	u := NewUART(testBase, &out)

	for _, ch := range []byte("ok\n") {
		u.Write(testBase, []byte{ch}, 0x1)
	}
	if out.String() != "ok\n" {
		t.Errorf("uart output = %q", out.String())
	}
}

func TestUARTSwallowsEscape(t *testing.T) {
	var out bytes.Buffer
	u := NewUART(testBase, &out)

	u.Write(testBase, []byte{0x1B}, 0x1)
	u.Write(testBase, []byte{'x'}, 0x1)
	if out.String() != "x" {
		t.Errorf("uart output = %q, want %q", out.String(), "x")
	}
}

func TestUARTStrobeGatesTHR(t *testing.T) {
	var out bytes.Buffer
	u := NewUART(testBase, &out)

	// Byte 0 disabled: nothing may print.
	u.Write(testBase, []byte{'y'}, 0x0)
	if out.Len() != 0 {
		t.Errorf("disabled byte reached THR: %q", out.String())
	}
}

func TestUARTNonTHROffsetsIgnored(t *testing.T) {
	var out bytes.Buffer
	u := NewUART(testBase, &out)

	// A write landing on LSR must not print.
	u.Write(testBase+5, []byte{'z'}, 0x1)
	if out.Len() != 0 {
		t.Errorf("non-THR write printed: %q", out.String())
	}
}

func TestUARTReadLSR(t *testing.T) {
	u := NewUART(testBase, nil)

	var b [1]byte
	u.Read(testBase+5, b[:])
	if b[0]&0x60 != 0x60 {
		t.Errorf("LSR = 0x%02x, want THRE|TEMT set", b[0])
	}

	// Every other register reads as zero.
	u.Read(testBase, b[:])
	if b[0] != 0 {
		t.Errorf("THR read = 0x%02x, want 0", b[0])
	}
	var four [4]byte
	u.Read(testBase+8, four[:])
	for i, v := range four {
		if v != 0 {
			t.Errorf("byte %d of unmapped read = 0x%02x", i, v)
		}
	}
}
