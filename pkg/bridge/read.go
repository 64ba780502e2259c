package bridge

import "github.com/oisee/axi-kit/pkg/axi"

// combReadArbiter drives the AR channel. Latched payloads replay first;
// otherwise a master that saw its ready pulse last cycle gets its AR
// issued, and failing that the round-robin cursor picks the next valid
// request for a ready pulse.
func (b *Bridge) combReadArbiter() {
	var curr [NumReadMasters]bool
	for i := range b.reqReadyR {
		curr[i] = b.reqReadyR[i]
		b.reqReadyR[i] = false
	}

	// Ready pulse with no matching valid: the master dropped the request.
	for i := range curr {
		if curr[i] && !b.ReadPorts[i].Req.Valid {
			b.log.Debug("read ready without valid (drop)", "master", i)
		}
	}

	// Replay a latched AR until the handshake completes.
	if b.arLatch.driving {
		b.arLatch.driveAR(&b.AXI.AR)
		if m := axi.DecodeID(b.arLatch.id).Master; int(m) < NumReadMasters {
			b.reqReadyR[m] = true
		}
		return
	}

	b.AXI.AR.Valid = false

	// Single outstanding read, single response buffer.
	if b.rActive || b.rRespValid {
		return
	}

	// Issue pass: a master that saw ready last cycle and still presents
	// the request gets its AR now.
	for i := 0; i < NumReadMasters; i++ {
		if !curr[i] || !b.ReadPorts[i].Req.Valid {
			continue
		}
		req := &b.ReadPorts[i].Req
		beats, isMMIO, ok := b.checkRequest("read", i, req.Addr, req.TotalSize)
		if !ok {
			continue
		}
		offset := uint8(req.Addr & (axi.DataBytes - 1))
		burst := axi.BurstIncr
		if isMMIO {
			burst = axi.BurstFixed
		}
		b.AXI.AR.Valid = true
		b.AXI.AR.Addr = req.Addr &^ (axi.DataBytes - 1)
		b.AXI.AR.Len = beats - 1
		b.AXI.AR.Size = axi.Size256
		b.AXI.AR.Burst = burst
		b.AXI.AR.ID = axi.TxMeta{
			Orig:      req.ID,
			Master:    uint8(i),
			Offset:    offset,
			TotalSize: req.TotalSize,
		}.Pack()
		return
	}

	// Ready-first pass: round-robin to the next valid, valid-geometry
	// request that has not yet seen a pulse.
	for k := 0; k < NumReadMasters; k++ {
		idx := (int(b.rrIdx) + k) % NumReadMasters
		req := &b.ReadPorts[idx].Req
		if !req.Valid || curr[idx] {
			continue
		}
		if _, _, ok := b.checkRequest("read", idx, req.Addr, req.TotalSize); !ok {
			continue
		}
		b.reqReadyR[idx] = true
		break
	}
}

// combReadResponse publishes the buffered read response to its master.
func (b *Bridge) combReadResponse() {
	for i := range b.ReadPorts {
		b.ReadPorts[i].Resp.Valid = false
	}

	b.AXI.R.Ready = true

	if b.rRespValid && int(b.rRespMaster) < NumReadMasters {
		resp := &b.ReadPorts[b.rRespMaster].Resp
		resp.Valid = true
		resp.Data = b.rRespData
		resp.ID = b.rRespID
		resp.Resp = b.rRespCode
	}
}

// seqReadSide latches AR state and assembles R beats.
func (b *Bridge) seqReadSide() {
	// Latch the AR payload if the target held ready low.
	if b.AXI.AR.Valid && !b.arLatch.driving && !b.AXI.AR.Ready {
		b.arLatch.captureAR(&b.AXI.AR)
	}

	// AR handshake: the transaction becomes active.
	if b.AXI.AR.Valid && b.AXI.AR.Ready {
		id := b.AXI.AR.ID
		length := b.AXI.AR.Len
		if b.arLatch.driving {
			id = b.arLatch.id
			length = b.arLatch.len
			b.arLatch.release()
		}

		b.rActive = true
		b.rID = id
		b.rTotalBeats = length + 1
		b.rBeatsDone = 0
		b.rBeats = [2]axi.Data256{}
		b.rRespCode = axi.RespOkay

		b.rrIdx = (axi.DecodeID(id).Master + 1) % NumReadMasters
	}

	// R channel: collect beats, then reassemble on the last one.
	if b.AXI.R.Valid && b.AXI.R.Ready && b.rActive {
		if b.rBeatsDone < 2 {
			b.rBeats[b.rBeatsDone] = b.AXI.R.Data
		}
		if b.AXI.R.Resp != axi.RespOkay && b.rRespCode == axi.RespOkay {
			b.rRespCode = b.AXI.R.Resp
		}
		b.rBeatsDone++

		if b.AXI.R.Last || b.rBeatsDone >= b.rTotalBeats {
			meta := axi.DecodeID(b.AXI.R.ID)

			// Flatten up to two beats into a linear byte view, then
			// left-pack the requested window into the output lanes.
			var buf [2 * axi.DataBytes]byte
			for bt := uint8(0); bt < b.rTotalBeats && bt < 2; bt++ {
				b.rBeats[bt].StoreBytes(buf[int(bt)*axi.DataBytes:])
			}

			var out [axi.DataBytes]byte
			for i := uint32(0); i < meta.Bytes() && i < axi.DataBytes; i++ {
				out[i] = buf[uint32(meta.Offset)+i]
			}

			b.rRespValid = true
			b.rRespMaster = meta.Master
			b.rRespID = meta.Orig
			b.rRespData = axi.LoadData256(out[:])

			b.rActive = false
			b.rTotalBeats = 0
			b.rBeatsDone = 0
		}
	}
}
