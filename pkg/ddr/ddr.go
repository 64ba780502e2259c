package ddr

import "github.com/oisee/axi-kit/pkg/axi"

// DefaultLatency is the cycle count between accepting a read address and
// the first data beat, and between the last write beat and BVALID.
const DefaultLatency = 100

type readState struct {
	addr        uint32
	id          uint32
	len         uint8
	size        uint8
	burst       uint8
	beatCnt     uint8
	latencyCnt  uint32
	inDataPhase bool
	complete    bool
}

type writeState struct {
	addr     uint32
	id       uint32
	len      uint8
	size     uint8
	burst    uint8
	beatCnt  uint8
	dataDone bool
}

type writeResp struct {
	id         uint32
	latencyCnt uint32
}

// SimDDR is the 256-bit AXI3 memory controller model: 32-byte beats only,
// INCR bursts, no interleaving (one outstanding read, one outstanding
// write including its pending response).
type SimDDR struct {
	IO      axi.Port256
	Latency uint32

	mem Backing

	wActive    bool
	wCurrent   writeState
	wRespQueue []writeResp

	rActive  bool
	rCurrent readState
}

// New creates a SimDDR over the given backing store.
func New(mem Backing, latency uint32) *SimDDR {
	return &SimDDR{mem: mem, Latency: latency}
}

// Init zeroes all controller state and drives benign idle outputs.
func (d *SimDDR) Init() {
	d.wActive = false
	d.wCurrent = writeState{}
	d.wRespQueue = d.wRespQueue[:0]

	d.rActive = false
	d.rCurrent = readState{}

	d.IO.AW.Ready = false
	d.IO.W.Ready = false
	d.IO.B = axi.BChan{Resp: axi.RespOkay}

	d.IO.AR.Ready = false
	d.IO.R = axi.RChan[axi.Data256]{Resp: axi.RespOkay}
}

// CombOutputs publishes ready states and response beats.
func (d *SimDDR) CombOutputs() {
	d.combReadChannel()
	d.combWriteChannel()
}

// CombInputs is a no-op: the controller reacts to request signals in Seq.
func (d *SimDDR) CombInputs() {}

func (d *SimDDR) combWriteChannel() {
	d.IO.AW.Ready = false
	d.IO.W.Ready = false
	d.IO.B.Valid = false
	d.IO.B.ID = 0
	d.IO.B.Resp = axi.RespOkay

	// One outstanding write, including the pending response.
	if !d.wActive && len(d.wRespQueue) == 0 {
		d.IO.AW.Ready = true
	}
	if d.wActive && !d.wCurrent.dataDone {
		d.IO.W.Ready = true
	}

	if len(d.wRespQueue) > 0 && d.wRespQueue[0].latencyCnt >= d.Latency {
		d.IO.B.Valid = true
		d.IO.B.ID = d.wRespQueue[0].id
		d.IO.B.Resp = axi.RespOkay
	}
}

func (d *SimDDR) combReadChannel() {
	d.IO.AR.Ready = false
	d.IO.R.Valid = false
	d.IO.R.ID = 0
	d.IO.R.Data = axi.Data256{}
	d.IO.R.Resp = axi.RespOkay
	d.IO.R.Last = false

	if !d.rActive {
		d.IO.AR.Ready = true
	}

	if d.rActive && d.rCurrent.inDataPhase && !d.rCurrent.complete {
		beatAddr := d.rCurrent.addr + uint32(d.rCurrent.beatCnt)<<d.rCurrent.size
		for i := 0; i < axi.DataWords; i++ {
			d.IO.R.Data[i] = d.mem.ReadWord(beatAddr + uint32(i*4))
		}
		d.IO.R.Valid = true
		d.IO.R.ID = d.rCurrent.id
		d.IO.R.Resp = axi.RespOkay
		d.IO.R.Last = d.rCurrent.beatCnt == d.rCurrent.len
	}
}

// Seq latches handshakes and advances latency counters.
func (d *SimDDR) Seq() {
	// Write address
	if d.IO.AW.Valid && d.IO.AW.Ready {
		d.wActive = true
		d.wCurrent = writeState{
			addr:  d.IO.AW.Addr,
			id:    d.IO.AW.ID,
			len:   d.IO.AW.Len,
			size:  d.IO.AW.Size,
			burst: d.IO.AW.Burst,
		}
	}

	// Write data
	if d.IO.W.Valid && d.IO.W.Ready && d.wActive {
		beatAddr := d.wCurrent.addr + uint32(d.wCurrent.beatCnt)<<d.wCurrent.size
		for i := 0; i < axi.DataWords; i++ {
			nibble := uint8(d.IO.W.Strb >> (i * 4) & 0xF)
			if nibble != 0 {
				d.mem.WriteWord(beatAddr+uint32(i*4), d.IO.W.Data[i], nibble)
			}
		}
		d.wCurrent.beatCnt++

		if d.IO.W.Last {
			d.wCurrent.dataDone = true
			d.wRespQueue = append(d.wRespQueue, writeResp{id: d.wCurrent.id})
			d.wActive = false
		}
	}

	// Write response consumed
	if d.IO.B.Valid && d.IO.B.Ready {
		d.wRespQueue = d.wRespQueue[1:]
	}

	for i := range d.wRespQueue {
		d.wRespQueue[i].latencyCnt++
	}

	// Read address
	if d.IO.AR.Valid && d.IO.AR.Ready {
		d.rActive = true
		d.rCurrent = readState{
			addr:  d.IO.AR.Addr,
			id:    d.IO.AR.ID,
			len:   d.IO.AR.Len,
			size:  d.IO.AR.Size,
			burst: d.IO.AR.Burst,
		}
	}

	// Read data consumed
	if d.IO.R.Valid && d.IO.R.Ready && d.rActive {
		if d.IO.R.Last {
			d.rCurrent.complete = true
			d.rActive = false
		} else {
			d.rCurrent.beatCnt++
		}
	}

	if d.rActive && !d.rCurrent.inDataPhase {
		d.rCurrent.latencyCnt++
		if d.rCurrent.latencyCnt >= d.Latency {
			d.rCurrent.inDataPhase = true
		}
	}
}
