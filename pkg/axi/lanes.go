package axi

import "encoding/binary"

// LoadLE32 reads a little-endian 32-bit word from p.
func LoadLE32(p []byte) uint32 {
	return binary.LittleEndian.Uint32(p)
}

// StoreLE32 writes v into p as little-endian bytes.
func StoreLE32(p []byte, v uint32) {
	binary.LittleEndian.PutUint32(p, v)
}

// StoreBytes serializes the beat into dst, which must hold DataBytes bytes.
func (d *Data256) StoreBytes(dst []byte) {
	for w := 0; w < DataWords; w++ {
		binary.LittleEndian.PutUint32(dst[w*4:], d[w])
	}
}

// LoadData256 assembles a beat from the first DataBytes bytes of src.
func LoadData256(src []byte) Data256 {
	var d Data256
	for w := 0; w < DataWords; w++ {
		d[w] = binary.LittleEndian.Uint32(src[w*4:])
	}
	return d
}
