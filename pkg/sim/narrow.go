package sim

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/oisee/axi-kit/pkg/axi"
	"github.com/oisee/axi-kit/pkg/ddr"
	"github.com/oisee/axi-kit/pkg/mmio"
	"github.com/oisee/axi-kit/pkg/router"
)

// NarrowBench wires the 32-bit AXI4 path: a raw upstream port feeding the
// narrow router instance, SimDDR32 and Bus32. There is no bridge on this
// path; the bench acts as the AXI master directly, which is also how the
// narrow components are unit-tested.
type NarrowBench struct {
	Up     axi.Port32
	Router *router.Router[uint32]
	DDR    *ddr.SimDDR32
	MMIO   *mmio.Bus32
	UART   *mmio.UART
	Mem    ddr.Backing

	now uint64
}

// NewNarrow builds the 32-bit path from cfg with a UART in the MMIO
// window.
func NewNarrow(cfg Config, lg *log.Logger, uartOut io.Writer) *NarrowBench {
	mem := ddr.NewBacking(cfg.MemWords)
	nb := &NarrowBench{
		Router: router.New[uint32](cfg.MMIOWindow()),
		DDR:    ddr.New32(mem, cfg.DDRLatency),
		MMIO:   mmio.NewBus32(lg),
		Mem:    mem,
	}
	nb.MMIO.Latency = cfg.MMIOLatency
	nb.UART = mmio.NewUART(cfg.UARTBase, uartOut)
	nb.MMIO.AddDevice(cfg.UARTBase, 0x100, nb.UART)

	nb.Router.Init()
	nb.DDR.Init()
	nb.MMIO.Init()
	return nb
}

// Now returns the cycle count.
func (nb *NarrowBench) Now() uint64 {
	return nb.now
}

func (nb *NarrowBench) combOutputs() {
	nb.DDR.CombOutputs()
	nb.MMIO.CombOutputs()
	nb.Router.CombOutputs(&nb.Up, &nb.DDR.IO, &nb.MMIO.IO)
}

func (nb *NarrowBench) combInputs() {
	nb.Router.CombInputs(&nb.Up, &nb.DDR.IO, &nb.MMIO.IO)
	nb.DDR.CombInputs()
	nb.MMIO.CombInputs()
}

func (nb *NarrowBench) seq() {
	nb.DDR.Seq()
	nb.MMIO.Seq()
	nb.Router.Seq(&nb.Up, &nb.DDR.IO, &nb.MMIO.IO)
	nb.now++
}

// ReadBurst issues one read burst and collects its beats. burst selects
// INCR or FIXED addressing.
func (nb *NarrowBench) ReadBurst(addr uint32, beats uint8, burst uint8, id uint32, limit int) ([]uint32, uint8, bool) {
	if beats == 0 {
		return nil, axi.RespOkay, false
	}

	data := make([]uint32, 0, beats)
	resp := axi.RespOkay
	issued := false

	for c := 0; c < limit; c++ {
		nb.combOutputs()

		up := &nb.Up
		if !issued {
			up.AR.Valid = true
			up.AR.Addr = addr
			up.AR.ID = id
			up.AR.Len = beats - 1
			up.AR.Size = axi.Size32
			up.AR.Burst = burst
		} else {
			up.AR.Valid = false
		}
		up.R.Ready = true

		nb.combInputs()

		if up.AR.Valid && up.AR.Ready {
			issued = true
		}
		done := false
		if up.R.Valid && up.R.Ready {
			data = append(data, up.R.Data)
			if up.R.Resp != axi.RespOkay && resp == axi.RespOkay {
				resp = up.R.Resp
			}
			done = up.R.Last
		}

		nb.seq()

		if done {
			return data, resp, true
		}
	}
	return data, resp, false
}

// ReadWord reads a single 4-byte beat.
func (nb *NarrowBench) ReadWord(addr uint32, id uint32, limit int) (uint32, uint8, bool) {
	data, resp, ok := nb.ReadBurst(addr, 1, axi.BurstIncr, id, limit)
	if !ok || len(data) == 0 {
		return 0, resp, false
	}
	return data[0], resp, ok
}

// WriteWord writes a single 4-byte beat under a 4-bit lane mask and waits
// for the write response.
func (nb *NarrowBench) WriteWord(addr, data uint32, strb uint8, id uint32, limit int) (uint8, bool) {
	awIssued := false
	wIssued := false

	for c := 0; c < limit; c++ {
		nb.combOutputs()

		up := &nb.Up
		if !awIssued {
			up.AW.Valid = true
			up.AW.Addr = addr
			up.AW.ID = id
			up.AW.Len = 0
			up.AW.Size = axi.Size32
			up.AW.Burst = axi.BurstIncr
		} else {
			up.AW.Valid = false
		}
		if !wIssued {
			up.W.Valid = true
			up.W.ID = id
			up.W.Data = data
			up.W.Strb = uint32(strb)
			up.W.Last = true
		} else {
			up.W.Valid = false
			up.W.Last = false
		}
		up.B.Ready = true

		nb.combInputs()

		if up.AW.Valid && up.AW.Ready {
			awIssued = true
		}
		if up.W.Valid && up.W.Ready {
			wIssued = true
		}
		done := false
		resp := axi.RespOkay
		if up.B.Valid && up.B.Ready {
			resp = up.B.Resp
			done = true
		}

		nb.seq()

		if done {
			return resp, true
		}
	}
	return axi.RespOkay, false
}
