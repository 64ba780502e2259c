package mmio

import (
	"github.com/charmbracelet/log"

	"github.com/oisee/axi-kit/pkg/axi"
)

type pendingRead32 struct {
	active     bool
	id         uint32
	addr       uint32
	len        uint8
	size       uint8
	burst      uint8
	beatIdx    uint8
	latencyCnt uint32
	beatValid  bool
	beatData   uint32
	beatResp   uint8
}

type pendingWrite32 struct {
	active  bool
	id      uint32
	addr    uint32
	len     uint8
	size    uint8
	burst   uint8
	beatIdx uint8
	resp    uint8
}

// Bus32 is the 32-bit MMIO target. Unlike the wide bus it walks multi-beat
// INCR and FIXED bursts one beat at a time, re-arming the latency counter
// per beat, and addresses devices directly from the beat address rather
// than a packed ID.
type Bus32 struct {
	IO      axi.Port32
	Latency uint32

	regions []region
	log     *log.Logger

	rPending pendingRead32
	wPending pendingWrite32
	wResp    pendingWriteResp
}

// NewBus32 creates an empty narrow bus. A nil logger falls back to the
// default.
func NewBus32(lg *log.Logger) *Bus32 {
	if lg == nil {
		lg = log.Default()
	}
	return &Bus32{Latency: DefaultLatency, log: lg}
}

// AddDevice appends a region to the decode list; first match wins.
func (b *Bus32) AddDevice(base, size uint32, dev Device) {
	b.regions = append(b.regions, region{window: axi.Range{Base: base, Size: size}, dev: dev})
}

// Init zeroes all bus state and drives benign idle outputs.
func (b *Bus32) Init() {
	b.rPending = pendingRead32{}
	b.wPending = pendingWrite32{}
	b.wResp = pendingWriteResp{}

	b.IO.AW = axi.AWChan{Size: axi.Size32, Burst: axi.BurstIncr}
	b.IO.W = axi.WChan[uint32]{}
	b.IO.B = axi.BChan{Resp: axi.RespOkay}
	b.IO.AR = axi.ARChan{Size: axi.Size32, Burst: axi.BurstIncr}
	b.IO.R = axi.RChan[uint32]{Resp: axi.RespOkay}
}

func beatBytes(size uint8) uint8 {
	bytes := uint32(4)
	if size < 8 {
		bytes = 1 << size
	}
	if bytes == 0 {
		return 1
	}
	if bytes > 4 {
		bytes = 4
	}
	return uint8(bytes)
}

func beatAddr(base uint32, burst, size, beat uint8) uint32 {
	if burst == axi.BurstFixed {
		return base
	}
	return base + uint32(beat)<<size
}

func (b *Bus32) buildReadBeat() {
	if !b.rPending.active || b.rPending.beatValid {
		return
	}

	addr := beatAddr(b.rPending.addr, b.rPending.burst, b.rPending.size, b.rPending.beatIdx)

	var bytes [4]byte
	n := beatBytes(b.rPending.size)
	if dev, ok := findDevice(b.regions, addr); ok {
		dev.Read(addr, bytes[:n])
		b.rPending.beatResp = axi.RespOkay
	} else {
		b.rPending.beatResp = axi.RespDecErr
		b.log.Debug("mmio read miss", "addr", addr)
	}

	b.rPending.beatData = axi.LoadLE32(bytes[:])
	b.rPending.beatValid = true
}

// CombOutputs publishes ready states and the current response beat.
func (b *Bus32) CombOutputs() {
	b.IO.AR.Ready = false
	b.IO.AW.Ready = false
	b.IO.W.Ready = false
	b.IO.R.Valid = false
	b.IO.R.ID = 0
	b.IO.R.Data = 0
	b.IO.R.Resp = axi.RespOkay
	b.IO.R.Last = false
	b.IO.B.Valid = false
	b.IO.B.ID = 0
	b.IO.B.Resp = axi.RespOkay

	// Single outstanding read stream.
	if !b.rPending.active {
		b.IO.AR.Ready = true
	}

	// Single outstanding write stream/response.
	if !b.wPending.active && !b.wResp.active {
		b.IO.AW.Ready = true
	}
	if b.wPending.active {
		b.IO.W.Ready = true
	}

	if b.rPending.active && b.rPending.beatValid {
		b.IO.R.Valid = true
		b.IO.R.ID = b.rPending.id
		b.IO.R.Data = b.rPending.beatData
		b.IO.R.Resp = b.rPending.beatResp
		b.IO.R.Last = b.rPending.beatIdx == b.rPending.len
	}

	if b.wResp.active && b.wResp.latencyCnt >= b.Latency {
		b.IO.B.Valid = true
		b.IO.B.ID = b.wResp.id
		b.IO.B.Resp = b.wResp.resp
	}
}

// CombInputs is a no-op: the bus reacts to request signals in Seq.
func (b *Bus32) CombInputs() {}

// Seq ticks devices, latches handshakes, and walks burst beats.
func (b *Bus32) Seq() {
	tickDevices(b.regions)

	// Accept AR
	if b.IO.AR.Valid && b.IO.AR.Ready {
		b.rPending = pendingRead32{
			active:   true,
			id:       b.IO.AR.ID,
			addr:     b.IO.AR.Addr,
			len:      b.IO.AR.Len,
			size:     b.IO.AR.Size,
			burst:    b.IO.AR.Burst,
			beatResp: axi.RespOkay,
		}
	}

	// Read latency progression and beat build.
	if b.rPending.active && !b.rPending.beatValid {
		if b.rPending.latencyCnt < b.Latency {
			b.rPending.latencyCnt++
		}
		if b.rPending.latencyCnt >= b.Latency {
			b.buildReadBeat()
		}
	}

	// Consume R beat
	if b.IO.R.Valid && b.IO.R.Ready && b.rPending.active && b.rPending.beatValid {
		if b.IO.R.Last {
			b.rPending.active = false
			b.rPending.beatValid = false
		} else {
			b.rPending.beatIdx++
			b.rPending.latencyCnt = 0
			b.rPending.beatValid = false
			b.rPending.beatData = 0
			b.rPending.beatResp = axi.RespOkay
		}
	}

	// Accept AW
	if b.IO.AW.Valid && b.IO.AW.Ready {
		b.wPending = pendingWrite32{
			active: true,
			id:     b.IO.AW.ID,
			addr:   b.IO.AW.Addr,
			len:    b.IO.AW.Len,
			size:   b.IO.AW.Size,
			burst:  b.IO.AW.Burst,
			resp:   axi.RespOkay,
		}
	}

	// Accept W beat
	if b.IO.W.Valid && b.IO.W.Ready && b.wPending.active {
		addr := beatAddr(b.wPending.addr, b.wPending.burst, b.wPending.size, b.wPending.beatIdx)

		var bytes [4]byte
		axi.StoreLE32(bytes[:], b.IO.W.Data)
		n := beatBytes(b.wPending.size)
		localStrb := b.IO.W.Strb & (1<<n - 1)

		if dev, ok := findDevice(b.regions, addr); ok {
			dev.Write(addr, bytes[:n], localStrb)
		} else {
			b.wPending.resp = axi.RespDecErr
			b.log.Debug("mmio write miss", "addr", addr)
		}

		lastBeat := b.wPending.beatIdx == b.wPending.len
		b.wPending.beatIdx++
		if b.IO.W.Last || lastBeat {
			b.wPending.active = false
			b.wResp = pendingWriteResp{active: true, id: b.wPending.id, resp: b.wPending.resp}
		}
	}

	if b.wResp.active && b.wResp.latencyCnt < b.Latency {
		b.wResp.latencyCnt++
	}

	// Consume write response
	if b.IO.B.Valid && b.IO.B.Ready && b.wResp.active {
		b.wResp.active = false
	}
}
