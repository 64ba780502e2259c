// Package bridge converts the simplified single-beat wide master ports
// into a constrained AXI3-style burst protocol on a 256-bit data bus.
//
// Upstream it exposes four read ports and two write ports with a
// registered-pulse ready discipline; downstream it issues one- or
// two-beat bursts with all per-request metadata packed into the AXI ID,
// reassembles response beats, and routes them back to the originating
// master port. At most one read and one write transaction are in flight
// at any time.
package bridge

import (
	"github.com/charmbracelet/log"

	"github.com/oisee/axi-kit/pkg/axi"
)

// Master port counts and indices.
const (
	NumReadMasters  = 4
	NumWriteMasters = 2

	MasterICache  = 0 // instruction cache refills
	MasterDCacheR = 1 // data cache read misses
	MasterMMU     = 2 // MMU table walker
	MasterAuxR    = 3 // spare read port

	MasterDCacheW = 0 // data cache writebacks
	MasterAuxW    = 1 // auxiliary writer
)

// ReadReq is the simplified upstream read request. Ready is a registered
// pulse: it is asserted for exactly the cycle after the bridge decides to
// accept, and the master must treat that cycle as the handshake.
type ReadReq struct {
	Valid     bool
	Ready     bool
	Addr      uint32
	TotalSize uint8 // bytes-1, 0..31
	ID        uint8 // 0..15, echoed in the response
}

// ReadResp is the simplified upstream read response. Data is left-aligned:
// the requested bytes occupy the low lanes. Valid stays high until the
// master asserts Ready in the same cycle.
type ReadResp struct {
	Valid bool
	Ready bool
	Data  axi.Data256
	ID    uint8
	Resp  uint8 // response code from the downstream R channel
}

// ReadPort pairs a read request with its response.
type ReadPort struct {
	Req  ReadReq
	Resp ReadResp
}

// WriteReq is the simplified upstream write request. Strb bit i enables
// byte i of the payload.
type WriteReq struct {
	Valid     bool
	Ready     bool
	Addr      uint32
	Data      axi.Data256
	Strb      uint32
	TotalSize uint8
	ID        uint8
}

// WriteResp is the simplified upstream write response.
type WriteResp struct {
	Valid bool
	Ready bool
	ID    uint8
	Resp  uint8
}

// WritePort pairs a write request with its response.
type WritePort struct {
	Req  WriteReq
	Resp WriteResp
}

// Bridge is the masters-to-AXI protocol converter.
type Bridge struct {
	ReadPorts  [NumReadMasters]ReadPort
	WritePorts [NumWriteMasters]WritePort

	// AXI is the downstream port, wired to the router.
	AXI axi.Port256

	mmio axi.Range
	log  *log.Logger

	// Registered ready pulses.
	reqReadyR  [NumReadMasters]bool
	wReqReadyR [NumWriteMasters]bool

	// Round-robin cursors.
	rrIdx uint8
	wrIdx uint8

	// Read response register (one at a time).
	rRespValid  bool
	rRespMaster uint8
	rRespID     uint8
	rRespCode   uint8
	rRespData   axi.Data256

	// Active read transaction (no interleaving).
	rActive     bool
	rID         uint32
	rTotalBeats uint8
	rBeatsDone  uint8
	rBeats      [2]axi.Data256

	arLatch addrLatch

	// Write response register.
	wRespValid  bool
	wRespMaster uint8
	wRespID     uint8
	wRespCode   uint8

	// Active write transaction (no interleaving).
	wActive     bool
	wMaster     uint8
	wID         uint32
	wTotalBeats uint8
	wBeatsSent  uint8
	wBeatsData  [2]axi.Data256
	wBeatsStrb  [2]uint32
	wAWDone     bool
	wWDone      bool

	awLatch addrLatch
}

// New creates a bridge decoding the given MMIO window. A nil logger falls
// back to the default.
func New(mmio axi.Range, lg *log.Logger) *Bridge {
	if lg == nil {
		lg = log.Default()
	}
	return &Bridge{mmio: mmio, log: lg}
}

// Init zeroes all bridge state and drives benign idle outputs.
func (b *Bridge) Init() {
	b.rrIdx = 0
	b.wrIdx = 0

	for i := range b.ReadPorts {
		b.reqReadyR[i] = false
		b.ReadPorts[i].Req.Ready = false
		b.ReadPorts[i].Resp = ReadResp{}
	}
	for i := range b.WritePorts {
		b.wReqReadyR[i] = false
		b.WritePorts[i].Req.Ready = false
		b.WritePorts[i].Resp = WriteResp{}
	}

	b.AXI.AR = axi.ARChan{Size: axi.Size256, Burst: axi.BurstIncr}
	b.AXI.R = axi.RChan[axi.Data256]{Ready: true}
	b.AXI.AW = axi.AWChan{Size: axi.Size256, Burst: axi.BurstIncr}
	b.AXI.W = axi.WChan[axi.Data256]{}
	b.AXI.B = axi.BChan{Ready: true}

	b.arLatch = addrLatch{}
	b.awLatch = addrLatch{}

	b.rRespValid = false
	b.rRespMaster = 0
	b.rRespID = 0
	b.rRespCode = axi.RespOkay
	b.rRespData = axi.Data256{}

	b.rActive = false
	b.rID = 0
	b.rTotalBeats = 0
	b.rBeatsDone = 0
	b.rBeats = [2]axi.Data256{}

	b.wRespValid = false
	b.wRespMaster = 0
	b.wRespID = 0
	b.wRespCode = axi.RespOkay

	b.wActive = false
	b.wMaster = 0
	b.wID = 0
	b.wTotalBeats = 0
	b.wBeatsSent = 0
	b.wBeatsData = [2]axi.Data256{}
	b.wBeatsStrb = [2]uint32{}
	b.wAWDone = false
	b.wWDone = false
}

// CombOutputs publishes buffered responses and the registered ready
// pulses toward the masters.
func (b *Bridge) CombOutputs() {
	b.combReadResponse()
	b.combWriteResponse()

	for i := range b.ReadPorts {
		b.ReadPorts[i].Req.Ready = b.reqReadyR[i]
	}

	// While an AR is latched the originating master keeps seeing ready.
	if b.arLatch.driving {
		if m := axi.DecodeID(b.arLatch.id).Master; int(m) < NumReadMasters {
			b.ReadPorts[m].Req.Ready = true
		}
	}

	for i := range b.WritePorts {
		b.WritePorts[i].Req.Ready = b.wReqReadyR[i]
	}
}

// CombInputs runs the arbiters and drives the downstream request
// channels.
func (b *Bridge) CombInputs() {
	b.combReadArbiter()
	b.combWriteRequest()
}

// checkRequest validates a request's beat geometry. Invalid requests are
// never granted a ready pulse, so a master presenting one stalls until it
// changes the request.
func (b *Bridge) checkRequest(kind string, master int, addr uint32, totalSize uint8) (beats uint8, isMMIO bool, ok bool) {
	offset := uint8(addr & (axi.DataBytes - 1))
	isMMIO = b.mmio.Contains(addr)
	if isMMIO {
		if uint32(offset)+uint32(totalSize)+1 > axi.DataBytes {
			b.log.Debug("mmio request spans beats",
				"kind", kind, "master", master, "addr", addr, "total_size", totalSize)
			return 0, true, false
		}
		return 1, true, true
	}
	beats = axi.CalcBeats(offset, totalSize)
	if beats == 0 || beats > 2 {
		b.log.Debug("invalid beat count",
			"kind", kind, "master", master, "addr", addr, "beats", beats)
		return beats, false, false
	}
	return beats, false, true
}

// Seq latches all bridge state for the cycle.
func (b *Bridge) Seq() {
	// Capture previous-cycle visibility so a response produced this cycle
	// is not cleared in the same cycle.
	rRespCurr := b.rRespValid
	wRespCurr := b.wRespValid

	// Upstream read response handshake.
	if rRespCurr && int(b.rRespMaster) < NumReadMasters {
		resp := &b.ReadPorts[b.rRespMaster].Resp
		if resp.Valid && resp.Ready {
			b.rRespValid = false
		}
	}

	// Upstream write response handshake clears the whole scoreboard.
	if wRespCurr && int(b.wRespMaster) < NumWriteMasters {
		resp := &b.WritePorts[b.wRespMaster].Resp
		if resp.Valid && resp.Ready {
			b.wRespValid = false
			b.wActive = false
			b.wAWDone = false
			b.wWDone = false
			b.wTotalBeats = 0
			b.wBeatsSent = 0
		}
	}

	b.seqReadSide()
	b.seqWriteSide()
}
