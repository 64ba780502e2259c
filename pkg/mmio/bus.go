package mmio

import (
	"github.com/charmbracelet/log"

	"github.com/oisee/axi-kit/pkg/axi"
)

// DefaultLatency is the cycle count between accepting a request and
// raising the response valid.
const DefaultLatency = 1

type pendingRead struct {
	active     bool
	id         uint32
	offset     uint8
	totalSize  uint8
	data       [axi.DataBytes]byte
	resp       uint8
	latencyCnt uint32
}

type pendingWriteResp struct {
	active     bool
	id         uint32
	resp       uint8
	latencyCnt uint32
}

// Bus is the 256-bit MMIO target. The bridge guarantees every request is
// a single FIXED beat; the bus decodes the packed ID to recover the byte
// offset and width within the beat, calls the device, and answers after
// Latency cycles. A region miss answers DECERR with zero data.
type Bus struct {
	IO      axi.Port256
	Latency uint32

	regions []region
	log     *log.Logger

	wActive bool
	wAddr   uint32
	wID     uint32

	rPending pendingRead
	wResp    pendingWriteResp
}

// NewBus creates an empty bus. A nil logger falls back to the default.
func NewBus(lg *log.Logger) *Bus {
	if lg == nil {
		lg = log.Default()
	}
	return &Bus{Latency: DefaultLatency, log: lg}
}

// AddDevice appends a region to the decode list. First match wins on
// overlap. Init does not clear the list, so devices added after Init are
// decoded as well.
func (b *Bus) AddDevice(base, size uint32, dev Device) {
	b.regions = append(b.regions, region{window: axi.Range{Base: base, Size: size}, dev: dev})
}

// Init zeroes all bus state and drives benign idle outputs.
func (b *Bus) Init() {
	b.wActive = false
	b.wAddr = 0
	b.wID = 0
	b.rPending = pendingRead{}
	b.wResp = pendingWriteResp{}

	b.IO.AW = axi.AWChan{Size: axi.Size256, Burst: axi.BurstFixed}
	b.IO.W = axi.WChan[axi.Data256]{}
	b.IO.B = axi.BChan{Resp: axi.RespOkay}
	b.IO.AR = axi.ARChan{Size: axi.Size256, Burst: axi.BurstFixed}
	b.IO.R = axi.RChan[axi.Data256]{Resp: axi.RespOkay}
}

// CombOutputs publishes ready states and, once the latency budget has
// elapsed, the pending responses.
func (b *Bus) CombOutputs() {
	b.IO.AR.Ready = false
	b.IO.AW.Ready = false
	b.IO.W.Ready = false
	b.IO.R.Valid = false
	b.IO.R.ID = 0
	b.IO.R.Data = axi.Data256{}
	b.IO.R.Resp = axi.RespOkay
	b.IO.R.Last = false
	b.IO.B.Valid = false
	b.IO.B.ID = 0
	b.IO.B.Resp = axi.RespOkay

	// One outstanding per direction.
	if !b.rPending.active {
		b.IO.AR.Ready = true
	}
	if !b.wActive && !b.wResp.active {
		b.IO.AW.Ready = true
	}
	if b.wActive {
		b.IO.W.Ready = true
	}

	if b.rPending.active && b.rPending.latencyCnt >= b.Latency {
		b.IO.R.Valid = true
		b.IO.R.ID = b.rPending.id
		b.IO.R.Resp = b.rPending.resp
		b.IO.R.Last = true

		// Paint the device bytes back at the recovered offset.
		var beat [axi.DataBytes]byte
		bytes := uint32(b.rPending.totalSize) + 1
		for i := uint32(0); i < bytes && i < axi.DataBytes; i++ {
			beat[uint32(b.rPending.offset)+i] = b.rPending.data[i]
		}
		b.IO.R.Data = axi.LoadData256(beat[:])
	}

	if b.wResp.active && b.wResp.latencyCnt >= b.Latency {
		b.IO.B.Valid = true
		b.IO.B.ID = b.wResp.id
		b.IO.B.Resp = b.wResp.resp
	}
}

// CombInputs is a no-op: the bus reacts to request signals in Seq.
func (b *Bus) CombInputs() {}

// Seq ticks devices, latches handshakes, and advances latency counters.
func (b *Bus) Seq() {
	tickDevices(b.regions)

	// Accept AR: call the device immediately, answer after the latency.
	if b.IO.AR.Valid && b.IO.AR.Ready {
		meta := axi.DecodeID(b.IO.AR.ID)
		addr := b.IO.AR.Addr + uint32(meta.Offset)

		b.rPending = pendingRead{
			active:    true,
			id:        b.IO.AR.ID,
			offset:    meta.Offset,
			totalSize: meta.TotalSize,
			resp:      axi.RespOkay,
		}

		if dev, ok := findDevice(b.regions, addr); ok {
			dev.Read(addr, b.rPending.data[:meta.Bytes()])
		} else {
			b.rPending.resp = axi.RespDecErr
			b.log.Debug("mmio read miss", "addr", addr)
		}
	}

	// Accept AW
	if b.IO.AW.Valid && b.IO.AW.Ready {
		b.wActive = true
		b.wAddr = b.IO.AW.Addr
		b.wID = b.IO.AW.ID
	}

	// Accept W: extract the enabled bytes by remapping wstrb through the
	// offset, then call the device.
	if b.IO.W.Valid && b.IO.W.Ready && b.wActive {
		meta := axi.DecodeID(b.wID)
		bytes := meta.Bytes()
		addr := b.wAddr + uint32(meta.Offset)

		var beat [axi.DataBytes]byte
		b.IO.W.Data.StoreBytes(beat[:])

		var localStrb uint32
		for i := uint32(0); i < bytes && i < axi.DataBytes; i++ {
			if b.IO.W.Strb>>(uint32(meta.Offset)+i)&1 != 0 {
				localStrb |= 1 << i
			}
		}

		resp := axi.RespOkay
		if dev, ok := findDevice(b.regions, addr); ok {
			dev.Write(addr, beat[meta.Offset:uint32(meta.Offset)+bytes], localStrb)
		} else {
			resp = axi.RespDecErr
			b.log.Debug("mmio write miss", "addr", addr)
		}

		if b.IO.W.Last {
			b.wActive = false
			b.wResp = pendingWriteResp{active: true, id: b.wID, resp: resp}
		}
	}

	// Responses consumed
	if b.IO.R.Valid && b.IO.R.Ready && b.rPending.active {
		b.rPending.active = false
	}
	if b.IO.B.Valid && b.IO.B.Ready && b.wResp.active {
		b.wResp.active = false
	}

	if b.rPending.active && b.rPending.latencyCnt < b.Latency {
		b.rPending.latencyCnt++
	}
	if b.wResp.active && b.wResp.latencyCnt < b.Latency {
		b.wResp.latencyCnt++
	}
}
