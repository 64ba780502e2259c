// Package router demultiplexes a single bursting AXI master stream onto
// two downstream targets (DRAM and MMIO) by address decode. It tracks one
// outstanding read and one outstanding write stream, which matches the
// bridge's own single-outstanding invariant.
//
// The Router is generic over the beat payload, so the same implementation
// serves the 256-bit path (Router[axi.Data256]) and the 32-bit path
// (Router[uint32]).
package router

import "github.com/oisee/axi-kit/pkg/axi"

// Router steers the five channels of an upstream port to one of two
// downstream ports per transaction. Target affinity latches on AR/AW
// acceptance and holds until the matching RLAST or B handshake.
type Router[D any] struct {
	mmio axi.Range

	rActive bool
	rToMMIO bool

	wActive bool
	wToMMIO bool
}

// New creates a router decoding the given MMIO window; every other
// address selects the DRAM target.
func New[D any](mmio axi.Range) *Router[D] {
	return &Router[D]{mmio: mmio}
}

// Init clears the per-direction affinity state.
func (rt *Router[D]) Init() {
	rt.rActive = false
	rt.rToMMIO = false
	rt.wActive = false
	rt.wToMMIO = false
}

// CombOutputs mirrors the selected target's response channels onto the
// upstream port. Idle directions are driven to a benign OKAY idle.
func (rt *Router[D]) CombOutputs(up, ddr, mmio *axi.Port[D]) {
	// Ready defaults; filled in CombInputs.
	up.AR.Ready = false
	up.AW.Ready = false
	up.W.Ready = false

	var zero D

	if rt.rActive {
		src := &ddr.R
		if rt.rToMMIO {
			src = &mmio.R
		}
		up.R.Valid = src.Valid
		up.R.ID = src.ID
		up.R.Data = src.Data
		up.R.Resp = src.Resp
		up.R.Last = src.Last
	} else {
		up.R.Valid = false
		up.R.ID = 0
		up.R.Data = zero
		up.R.Resp = axi.RespOkay
		up.R.Last = false
	}

	if rt.wActive {
		src := &ddr.B
		if rt.wToMMIO {
			src = &mmio.B
		}
		up.B.Valid = src.Valid
		up.B.ID = src.ID
		up.B.Resp = src.Resp
	} else {
		up.B.Valid = false
		up.B.ID = 0
		up.B.Resp = axi.RespOkay
	}
}

// CombInputs mirrors upstream request channels onto the decoded target
// and routes the target's ready signals back. The unused target's request
// valids and response readies are deasserted so it never sees a stray
// handshake.
func (rt *Router[D]) CombInputs(up, ddr, mmio *axi.Port[D]) {
	ddr.AR.Valid = false
	ddr.AW.Valid = false
	ddr.W.Valid = false
	ddr.W.Last = false

	mmio.AR.Valid = false
	mmio.AW.Valid = false
	mmio.W.Valid = false
	mmio.W.Last = false

	arReady := false
	awReady := false
	wReady := false

	// Read address routing
	arSelMMIO := rt.mmio.Contains(up.AR.Addr)
	if !rt.rActive {
		if arSelMMIO {
			arReady = mmio.AR.Ready
		} else {
			arReady = ddr.AR.Ready
		}
		if up.AR.Valid {
			dst := &ddr.AR
			if arSelMMIO {
				dst = &mmio.AR
			}
			dst.Valid = true
			dst.Addr = up.AR.Addr
			dst.ID = up.AR.ID
			dst.Len = up.AR.Len
			dst.Size = up.AR.Size
			dst.Burst = up.AR.Burst
		}
	}

	// Write address routing
	awSelMMIO := rt.mmio.Contains(up.AW.Addr)
	awReadyNow := ddr.AW.Ready
	if awSelMMIO {
		awReadyNow = mmio.AW.Ready
	}
	awHandshakeNow := up.AW.Valid && awReadyNow
	if !rt.wActive {
		awReady = awReadyNow
		if up.AW.Valid {
			dst := &ddr.AW
			if awSelMMIO {
				dst = &mmio.AW
			}
			dst.Valid = true
			dst.Addr = up.AW.Addr
			dst.ID = up.AW.ID
			dst.Len = up.AW.Len
			dst.Size = up.AW.Size
			dst.Burst = up.AW.Burst
		}
	}

	// Write data routing. The transient wSel considers a freshly
	// handshaken AW so AW and W can complete in the same cycle.
	wSelMMIO := false
	if rt.wActive {
		wSelMMIO = rt.wToMMIO
	} else if awHandshakeNow {
		wSelMMIO = awSelMMIO
	}
	if rt.wActive || awHandshakeNow {
		if wSelMMIO {
			wReady = mmio.W.Ready
		} else {
			wReady = ddr.W.Ready
		}
		if up.W.Valid {
			dst := &ddr.W
			if wSelMMIO {
				dst = &mmio.W
			}
			dst.Valid = true
			dst.ID = up.W.ID
			dst.Data = up.W.Data
			dst.Strb = up.W.Strb
			dst.Last = up.W.Last
		}
	}

	up.AR.Ready = arReady
	up.AW.Ready = awReady
	up.W.Ready = wReady

	// Response readies follow the active target only.
	if rt.rActive {
		if rt.rToMMIO {
			mmio.R.Ready = up.R.Ready
			ddr.R.Ready = false
		} else {
			ddr.R.Ready = up.R.Ready
			mmio.R.Ready = false
		}
	} else {
		ddr.R.Ready = false
		mmio.R.Ready = false
	}

	if rt.wActive {
		if rt.wToMMIO {
			mmio.B.Ready = up.B.Ready
			ddr.B.Ready = false
		} else {
			ddr.B.Ready = up.B.Ready
			mmio.B.Ready = false
		}
	} else {
		ddr.B.Ready = false
		mmio.B.Ready = false
	}
}

// Seq latches target affinity on AR/AW acceptance and releases it on the
// terminal RLAST/B handshake of the selected target.
func (rt *Router[D]) Seq(up, ddr, mmio *axi.Port[D]) {
	if up.AR.Valid && up.AR.Ready {
		rt.rActive = true
		rt.rToMMIO = rt.mmio.Contains(up.AR.Addr)
	}

	if rt.rActive {
		src := &ddr.R
		if rt.rToMMIO {
			src = &mmio.R
		}
		if src.Valid && src.Ready && src.Last {
			rt.rActive = false
		}
	}

	if up.AW.Valid && up.AW.Ready {
		rt.wActive = true
		rt.wToMMIO = rt.mmio.Contains(up.AW.Addr)
	}

	if rt.wActive {
		src := &ddr.B
		if rt.wToMMIO {
			src = &mmio.B
		}
		if src.Valid && src.Ready {
			rt.wActive = false
		}
	}
}
