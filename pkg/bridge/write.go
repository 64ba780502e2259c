package bridge

import "github.com/oisee/axi-kit/pkg/axi"

// combWriteRequest drives the AW and W channels. Write masters arbitrate
// round-robin with the same ready-first discipline as reads.
func (b *Bridge) combWriteRequest() {
	var curr [NumWriteMasters]bool
	for i := range b.wReqReadyR {
		curr[i] = b.wReqReadyR[i]
		b.wReqReadyR[i] = false
	}

	for i := range curr {
		if curr[i] && !b.WritePorts[i].Req.Valid {
			b.log.Debug("write ready without valid (drop)", "master", i)
		}
	}

	if b.awLatch.driving {
		b.awLatch.driveAW(&b.AXI.AW)
	} else {
		b.AXI.AW.Valid = false

		// Ready-first pulse; blocked while a write or its response is in
		// flight, or while another master's pulse is still completing its
		// handshake this cycle.
		anyCurr := false
		for i := range curr {
			if curr[i] {
				anyCurr = true
			}
		}
		if !b.wActive && !b.wRespValid && !anyCurr {
			for k := 0; k < NumWriteMasters; k++ {
				idx := (int(b.wrIdx) + k) % NumWriteMasters
				req := &b.WritePorts[idx].Req
				if !req.Valid {
					continue
				}
				if _, _, ok := b.checkRequest("write", idx, req.Addr, req.TotalSize); !ok {
					continue
				}
				b.wReqReadyR[idx] = true
				break
			}
		}
	}

	b.AXI.W.Valid = false
	b.AXI.W.Last = false

	// W may start the same cycle the AW handshake completes.
	awHandshakeNow := b.awLatch.driving && b.AXI.AW.Ready
	if b.wActive && !b.wWDone && b.wBeatsSent < b.wTotalBeats && (b.wAWDone || awHandshakeNow) {
		b.AXI.W.Valid = true
		b.AXI.W.ID = b.wID
		b.AXI.W.Data = b.wBeatsData[b.wBeatsSent]
		b.AXI.W.Strb = b.wBeatsStrb[b.wBeatsSent]
		b.AXI.W.Last = b.wBeatsSent == b.wTotalBeats-1
	}
}

// combWriteResponse publishes the buffered write response to its master.
func (b *Bridge) combWriteResponse() {
	for i := range b.WritePorts {
		b.WritePorts[i].Resp.Valid = false
	}

	if b.wRespValid && int(b.wRespMaster) < NumWriteMasters {
		resp := &b.WritePorts[b.wRespMaster].Resp
		resp.Valid = true
		resp.ID = b.wRespID
		resp.Resp = b.wRespCode
	}

	b.AXI.B.Ready = !b.wRespValid
}

// seqWriteSide accepts new write requests and advances the AW/W/B
// scoreboard.
func (b *Bridge) seqWriteSide() {
	// Accept the write whose master holds this cycle's ready pulse.
	if !b.wActive {
		for i := 0; i < NumWriteMasters; i++ {
			req := &b.WritePorts[i].Req
			if req.Valid && req.Ready {
				b.acceptWrite(uint8(i), req)
				break
			}
		}
	}

	// AW handshake.
	if b.AXI.AW.Valid && b.AXI.AW.Ready && b.awLatch.driving {
		b.awLatch.release()
		b.wAWDone = true
	}

	// W beat handshake.
	if b.AXI.W.Valid && b.AXI.W.Ready && b.wActive {
		b.wBeatsSent++
		if b.AXI.W.Last {
			b.wWDone = true
		}
	}

	// B handshake buffers the response until the master collects it.
	if b.AXI.B.Valid && b.AXI.B.Ready {
		meta := axi.DecodeID(b.AXI.B.ID)
		b.wRespValid = true
		b.wRespMaster = meta.Master % NumWriteMasters
		b.wRespID = meta.Orig
		b.wRespCode = b.AXI.B.Resp
	}
}

// acceptWrite validates the request, splits the payload across aligned
// beats, and arms the AW latch and W scoreboard.
func (b *Bridge) acceptWrite(master uint8, req *WriteReq) {
	beats, isMMIO, ok := b.checkRequest("write", int(master), req.Addr, req.TotalSize)
	if !ok {
		// Ready is withheld for invalid geometry, so reaching this means
		// the master swapped the request after its pulse.
		b.log.Debug("write request invalid at accept", "master", master, "addr", req.Addr)
		return
	}

	offset := uint8(req.Addr & (axi.DataBytes - 1))
	id := axi.TxMeta{
		Orig:      req.ID,
		Master:    master,
		Offset:    offset,
		TotalSize: req.TotalSize,
	}.Pack()

	var in [axi.DataBytes]byte
	req.Data.StoreBytes(in[:])

	// Scatter enabled payload bytes into their destination beat lanes.
	var beatBytes [2][axi.DataBytes]byte
	b.wBeatsStrb = [2]uint32{}
	bytes := uint32(req.TotalSize) + 1
	for i := uint32(0); i < bytes && i < axi.DataBytes; i++ {
		if req.Strb>>i&1 == 0 {
			continue
		}
		dst := uint32(offset) + i
		beat := dst / axi.DataBytes
		pos := dst % axi.DataBytes
		if beat >= uint32(beats) {
			continue
		}
		beatBytes[beat][pos] = in[i]
		b.wBeatsStrb[beat] |= 1 << pos
	}
	for bt := uint8(0); bt < beats; bt++ {
		b.wBeatsData[bt] = axi.LoadData256(beatBytes[bt][:])
	}

	b.wActive = true
	b.wMaster = master
	b.wID = id
	b.wTotalBeats = beats
	b.wBeatsSent = 0
	b.wAWDone = false
	b.wWDone = false
	b.wrIdx = (master + 1) % NumWriteMasters

	burst := axi.BurstIncr
	if isMMIO {
		burst = axi.BurstFixed
	}
	b.awLatch.set(req.Addr&^uint32(axi.DataBytes-1), beats-1, axi.Size256, burst, id)
}
