package axi

// TxMeta is the per-request metadata the bridge carries through the AXI ID
// field. It is the only metadata channel for in-flight transactions: the
// bridge packs it into ARID/AWID and recovers it from RID/BID, so no
// shadow table is needed downstream.
//
// Packed layout (16 bits used of the 32-bit ID signal):
//
//	[3:0]   Orig      upstream-chosen id
//	[5:4]   Master    master port index
//	[10:6]  Offset    byte offset within the first aligned 32-byte beat
//	[15:11] TotalSize transfer width, bytes = TotalSize+1
type TxMeta struct {
	Orig      uint8
	Master    uint8
	Offset    uint8
	TotalSize uint8
}

// Pack encodes the metadata into an AXI ID value. Fields are masked to
// their bit widths.
func (m TxMeta) Pack() uint32 {
	return uint32(m.Orig&0xF) |
		uint32(m.Master&0x3)<<4 |
		uint32(m.Offset&0x1F)<<6 |
		uint32(m.TotalSize&0x1F)<<11
}

// DecodeID recovers the metadata from an AXI ID value.
func DecodeID(id uint32) TxMeta {
	return TxMeta{
		Orig:      uint8(id & 0xF),
		Master:    uint8(id >> 4 & 0x3),
		Offset:    uint8(id >> 6 & 0x1F),
		TotalSize: uint8(id >> 11 & 0x1F),
	}
}

// Bytes returns the transfer width in bytes.
func (m TxMeta) Bytes() uint32 {
	return uint32(m.TotalSize) + 1
}

// CalcBeats returns the number of aligned 32-byte beats covered by a
// transfer of totalSize+1 bytes starting at offset within its first beat.
// With offset and totalSize both below 32 the result is always 1 or 2.
func CalcBeats(offset, totalSize uint8) uint8 {
	span := uint32(offset) + uint32(totalSize) + 1
	return uint8((span + DataBytes - 1) / DataBytes)
}
