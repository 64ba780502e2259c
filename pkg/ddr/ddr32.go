package ddr

import "github.com/oisee/axi-kit/pkg/axi"

// SimDDR32 is the 32-bit AXI4 variant of the memory controller model:
// 4-byte beats, INCR or FIXED bursts, single outstanding transaction per
// direction. It serves the narrow router/MMIO path.
type SimDDR32 struct {
	IO      axi.Port32
	Latency uint32

	mem Backing

	wActive    bool
	wCurrent   writeState
	wRespQueue []writeResp

	rActive  bool
	rCurrent readState
}

// New32 creates a SimDDR32 over the given backing store.
func New32(mem Backing, latency uint32) *SimDDR32 {
	return &SimDDR32{mem: mem, Latency: latency}
}

func beatAddr32(base uint32, burst, size, beat uint8) uint32 {
	if burst == axi.BurstFixed {
		return base
	}
	return base + uint32(beat)<<size
}

// Init zeroes all controller state and drives benign idle outputs.
func (d *SimDDR32) Init() {
	d.wActive = false
	d.wCurrent = writeState{}
	d.wRespQueue = d.wRespQueue[:0]
	d.rActive = false
	d.rCurrent = readState{}

	d.IO.AW.Ready = false
	d.IO.W.Ready = false
	d.IO.B = axi.BChan{Resp: axi.RespOkay}
	d.IO.AR.Ready = false
	d.IO.R = axi.RChan[uint32]{Resp: axi.RespOkay}
}

// CombOutputs publishes ready states and response beats.
func (d *SimDDR32) CombOutputs() {
	d.IO.AR.Ready = false
	d.IO.R.Valid = false
	d.IO.R.ID = 0
	d.IO.R.Data = 0
	d.IO.R.Resp = axi.RespOkay
	d.IO.R.Last = false

	d.IO.AW.Ready = false
	d.IO.W.Ready = false
	d.IO.B.Valid = false
	d.IO.B.ID = 0
	d.IO.B.Resp = axi.RespOkay

	if !d.rActive {
		d.IO.AR.Ready = true
	}
	if !d.wActive && len(d.wRespQueue) == 0 {
		d.IO.AW.Ready = true
	}
	if d.wActive && !d.wCurrent.dataDone {
		d.IO.W.Ready = true
	}

	if d.rActive && d.rCurrent.inDataPhase && !d.rCurrent.complete {
		addr := beatAddr32(d.rCurrent.addr, d.rCurrent.burst, d.rCurrent.size, d.rCurrent.beatCnt)
		d.IO.R.Valid = true
		d.IO.R.ID = d.rCurrent.id
		d.IO.R.Data = d.mem.ReadWord(addr)
		d.IO.R.Resp = axi.RespOkay
		d.IO.R.Last = d.rCurrent.beatCnt == d.rCurrent.len
	}

	if len(d.wRespQueue) > 0 && d.wRespQueue[0].latencyCnt >= d.Latency {
		d.IO.B.Valid = true
		d.IO.B.ID = d.wRespQueue[0].id
		d.IO.B.Resp = axi.RespOkay
	}
}

// CombInputs is a no-op: the controller reacts to request signals in Seq.
func (d *SimDDR32) CombInputs() {}

// Seq latches handshakes and advances latency counters.
func (d *SimDDR32) Seq() {
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

	if d.IO.W.Valid && d.IO.W.Ready && d.wActive {
		addr := beatAddr32(d.wCurrent.addr, d.wCurrent.burst, d.wCurrent.size, d.wCurrent.beatCnt)
		d.mem.WriteWord(addr, d.IO.W.Data, uint8(d.IO.W.Strb&0xF))
		d.wCurrent.beatCnt++

		if d.IO.W.Last {
			d.wCurrent.dataDone = true
			d.wRespQueue = append(d.wRespQueue, writeResp{id: d.wCurrent.id})
			d.wActive = false
		}
	}

	if d.IO.B.Valid && d.IO.B.Ready {
		d.wRespQueue = d.wRespQueue[1:]
	}
	for i := range d.wRespQueue {
		d.wRespQueue[i].latencyCnt++
	}

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
