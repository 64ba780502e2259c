// Package mmio implements the memory-mapped I/O targets: an AXI slave bus
// that decodes region ranges and delegates byte-granular access to device
// models, in a 256-bit single-beat FIXED variant (Bus) and a 32-bit
// multi-beat variant (Bus32), plus a 16550-style UART device.
package mmio

import "github.com/oisee/axi-kit/pkg/axi"

// Device is the contract between the bus and a device model. Addresses
// are absolute bus addresses; a device registered at base B receives
// accesses in [B, B+size).
type Device interface {
	// Read fills data with len(data) bytes starting at addr. Unmapped
	// offsets read as zero.
	Read(addr uint32, data []byte)

	// Write applies data[i] at addr+i for each i whose bit is set in strb.
	Write(addr uint32, data []byte, strb uint32)

	// Tick advances one cycle of device-internal state. The bus ticks
	// every registered device once per Seq.
	Tick()
}

type region struct {
	window axi.Range
	dev    Device
}

// findDevice returns the first region containing addr; overlaps resolve
// first-match-wins in registration order.
func findDevice(regions []region, addr uint32) (Device, bool) {
	for _, r := range regions {
		if r.window.Contains(addr) {
			return r.dev, true
		}
	}
	return nil, false
}

func tickDevices(regions []region) {
	for _, r := range regions {
		if r.dev != nil {
			r.dev.Tick()
		}
	}
}
