package axi

import (
	"testing"

	"pgregory.net/rapid"
)

// TestIDRoundTrip verifies Pack/DecodeID over the full field domain.
func TestIDRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		meta := TxMeta{
			Orig:      uint8(rapid.IntRange(0, 15).Draw(t, "orig")),
			Master:    uint8(rapid.IntRange(0, 3).Draw(t, "master")),
			Offset:    uint8(rapid.IntRange(0, 31).Draw(t, "offset")),
			TotalSize: uint8(rapid.IntRange(0, 31).Draw(t, "total_size")),
		}
		got := DecodeID(meta.Pack())
		if got != meta {
			t.Fatalf("round trip %+v -> 0x%08x -> %+v", meta, meta.Pack(), got)
		}
	})
}

// TestIDPackMasksOversizedFields verifies oversized inputs cannot bleed
// into neighboring fields.
func TestIDPackMasksOversizedFields(t *testing.T) {
	id := TxMeta{Orig: 0xFF, Master: 0xFF, Offset: 0xFF, TotalSize: 0xFF}.Pack()
	if id>>16 != 0 {
		t.Errorf("packed id uses bits above 15: 0x%08x", id)
	}
	meta := DecodeID(id)
	if meta.Orig != 0xF || meta.Master != 0x3 || meta.Offset != 0x1F || meta.TotalSize != 0x1F {
		t.Errorf("masking broken: %+v", meta)
	}
}

// TestCalcBeatsExhaustive checks every (offset, total_size) pair against
// the ceiling formula and the 1..2 range.
func TestCalcBeatsExhaustive(t *testing.T) {
	for offset := 0; offset < 32; offset++ {
		for totalSize := 0; totalSize < 32; totalSize++ {
			got := CalcBeats(uint8(offset), uint8(totalSize))
			span := offset + totalSize + 1
			want := (span + DataBytes - 1) / DataBytes
			if int(got) != want {
				t.Fatalf("CalcBeats(%d, %d) = %d, want %d", offset, totalSize, got, want)
			}
			if got != 1 && got != 2 {
				t.Fatalf("CalcBeats(%d, %d) = %d, outside {1,2}", offset, totalSize, got)
			}
		}
	}
}

func TestCalcBeatsCases(t *testing.T) {
	tests := []struct {
		offset, totalSize, want uint8
	}{
		{0, 0, 1},   // 1 byte aligned
		{0, 31, 1},  // full beat
		{31, 0, 1},  // last byte of a beat
		{31, 1, 2},  // 2 bytes straddling
		{30, 3, 2},  // 4 bytes at offset 30
		{1, 31, 2},  // full width, shifted by one
		{16, 15, 1}, // upper half
		{16, 16, 2}, // one past the upper half
	}
	for _, tc := range tests {
		if got := CalcBeats(tc.offset, tc.totalSize); got != tc.want {
			t.Errorf("CalcBeats(%d, %d) = %d, want %d", tc.offset, tc.totalSize, got, tc.want)
		}
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Base: 0x10000000, Size: 0x1000}
	tests := []struct {
		addr uint32
		want bool
	}{
		{0x0FFFFFFF, false},
		{0x10000000, true},
		{0x10000FFF, true},
		{0x10001000, false},
		{0x1000, false},
	}
	for _, tc := range tests {
		if got := r.Contains(tc.addr); got != tc.want {
			t.Errorf("Contains(0x%08x) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

// TestDataLaneRoundTrip pins the little-endian lane layout: byte i of the
// flattened view is byte i%4 of lane i/4.
func TestDataLaneRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var d Data256
		for w := range d {
			d[w] = rapid.Uint32().Draw(t, "lane")
		}
		var buf [DataBytes]byte
		d.StoreBytes(buf[:])
		if got := LoadData256(buf[:]); got != d {
			t.Fatalf("lane round trip: %v -> %v", d, got)
		}
		if buf[0] != byte(d[0]) || buf[4] != byte(d[1]) {
			t.Fatalf("lane layout not little-endian-per-word")
		}
	})
}
