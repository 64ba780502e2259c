package sim

import "github.com/oisee/axi-kit/pkg/axi"

// ReadResult is the outcome of a driven read transaction.
type ReadResult struct {
	Data   axi.Data256
	ID     uint8
	Resp   uint8
	Cycles int
}

// WriteResult is the outcome of a driven write transaction.
type WriteResult struct {
	ID     uint8
	Resp   uint8
	Cycles int
}

// DoRead drives one simplified read on the given master port, running the
// cycle loop until the response handshake or the cycle limit. The request
// is presented until the ready pulse, then withdrawn; the response ready
// is held high throughout.
func (s *Subsystem) DoRead(master int, addr uint32, totalSize, id uint8, limit int) (ReadResult, bool) {
	accepted := false
	for c := 0; c < limit; c++ {
		s.CombOutputs()

		port := &s.Bridge.ReadPorts[master]
		if !accepted {
			port.Req.Valid = true
			port.Req.Addr = addr
			port.Req.TotalSize = totalSize
			port.Req.ID = id
		}
		port.Resp.Ready = true

		if port.Req.Valid && port.Req.Ready {
			accepted = true
		}

		done := port.Resp.Valid
		var res ReadResult
		if done {
			res = ReadResult{
				Data:   port.Resp.Data,
				ID:     port.Resp.ID,
				Resp:   port.Resp.Resp,
				Cycles: c + 1,
			}
		}

		s.CombInputs()
		s.Seq()

		if done {
			return res, true
		}
	}
	return ReadResult{}, false
}

// DoWrite drives one simplified write on the given master port, running
// the cycle loop until the response handshake or the cycle limit.
func (s *Subsystem) DoWrite(master int, addr uint32, data axi.Data256, strb uint32, totalSize, id uint8, limit int) (WriteResult, bool) {
	accepted := false
	for c := 0; c < limit; c++ {
		s.CombOutputs()

		port := &s.Bridge.WritePorts[master]
		if !accepted {
			port.Req.Valid = true
			port.Req.Addr = addr
			port.Req.Data = data
			port.Req.Strb = strb
			port.Req.TotalSize = totalSize
			port.Req.ID = id
		}
		port.Resp.Ready = true

		if port.Req.Valid && port.Req.Ready {
			accepted = true
		}

		done := port.Resp.Valid
		var res WriteResult
		if done {
			res = WriteResult{
				ID:     port.Resp.ID,
				Resp:   port.Resp.Resp,
				Cycles: c + 1,
			}
		}

		s.CombInputs()
		s.Seq()

		if done {
			return res, true
		}
	}
	return WriteResult{}, false
}

// MemByte reads one byte out of the backing store, for test comparisons.
func (s *Subsystem) MemByte(addr uint32) byte {
	word := s.Mem.ReadWord(addr &^ 3)
	return byte(word >> (8 * (addr & 3)))
}
