package sim

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/oisee/axi-kit/pkg/axi"
	"github.com/oisee/axi-kit/pkg/bridge"
	"github.com/oisee/axi-kit/pkg/ddr"
	"github.com/oisee/axi-kit/pkg/mmio"
	"github.com/oisee/axi-kit/pkg/router"
)

// Subsystem owns one instance of the full memory pipeline:
//
//	masters -> Bridge -> Router -> {SimDDR, MMIO Bus -> UART}
//
// It is constructed once per simulation; there is no global state. The
// cycle loop calls CombOutputs, lets the masters drive their ports, then
// CombInputs and Seq. Within each phase components run leaves-first for
// outputs and bridge-first for inputs, so every signal settles before its
// consumer reads it.
type Subsystem struct {
	Bridge *bridge.Bridge
	Router *router.Router[axi.Data256]
	MMIO   *mmio.Bus
	DDR    *ddr.SimDDR
	UART   *mmio.UART
	Mem    ddr.Backing

	// Trace, when set, records every downstream handshake.
	Trace *Trace

	now uint64
}

// New builds and initializes a subsystem from cfg. UART output goes to
// uartOut; a nil logger falls back to the default.
func New(cfg Config, lg *log.Logger, uartOut io.Writer) *Subsystem {
	mem := ddr.NewBacking(cfg.MemWords)
	window := cfg.MMIOWindow()

	s := &Subsystem{
		Bridge: bridge.New(window, lg),
		Router: router.New[axi.Data256](window),
		MMIO:   mmio.NewBus(lg),
		DDR:    ddr.New(mem, cfg.DDRLatency),
		Mem:    mem,
	}
	s.MMIO.Latency = cfg.MMIOLatency
	s.UART = mmio.NewUART(cfg.UARTBase, uartOut)
	s.MMIO.AddDevice(cfg.UARTBase, 0x100, s.UART)

	s.Init()
	return s
}

// Init zeroes every component and the cycle counter.
func (s *Subsystem) Init() {
	s.Bridge.Init()
	s.Router.Init()
	s.MMIO.Init()
	s.DDR.Init()
	s.clearInputs()
	s.now = 0
}

// Now returns the cycle count since Init.
func (s *Subsystem) Now() uint64 {
	return s.now
}

// CombOutputs runs phase 1: targets publish response signals and the
// router mirrors them upstream, then the bridge publishes its master-side
// responses and ready pulses. Master request inputs are cleared first;
// masters drive them between CombOutputs and CombInputs.
func (s *Subsystem) CombOutputs() {
	s.clearInputs()

	s.DDR.CombOutputs()
	s.MMIO.CombOutputs()
	s.Router.CombOutputs(&s.Bridge.AXI, &s.DDR.IO, &s.MMIO.IO)
	s.Bridge.CombOutputs()
}

// CombInputs runs phase 2: the bridge arbitrates and drives its AXI
// request channels, the router steers them to the decoded target.
func (s *Subsystem) CombInputs() {
	s.Bridge.CombInputs()
	s.Router.CombInputs(&s.Bridge.AXI, &s.DDR.IO, &s.MMIO.IO)
	s.DDR.CombInputs()
	s.MMIO.CombInputs()
}

// Seq latches all component state, leaves first.
func (s *Subsystem) Seq() {
	if s.Trace != nil {
		s.Trace.record(s.now, "ddr", &s.DDR.IO)
		s.Trace.record(s.now, "mmio", &s.MMIO.IO)
	}

	s.DDR.Seq()
	s.MMIO.Seq()
	s.Router.Seq(&s.Bridge.AXI, &s.DDR.IO, &s.MMIO.IO)
	s.Bridge.Seq()
	s.now++
}

// Cycle runs one full idle cycle with no master activity.
func (s *Subsystem) Cycle() {
	s.CombOutputs()
	s.CombInputs()
	s.Seq()
}

// Named port accessors for the CPU-side masters.

func (s *Subsystem) ICachePort() *bridge.ReadPort {
	return &s.Bridge.ReadPorts[bridge.MasterICache]
}

func (s *Subsystem) DCacheReadPort() *bridge.ReadPort {
	return &s.Bridge.ReadPorts[bridge.MasterDCacheR]
}

func (s *Subsystem) MMUPort() *bridge.ReadPort {
	return &s.Bridge.ReadPorts[bridge.MasterMMU]
}

func (s *Subsystem) DCacheWritePort() *bridge.WritePort {
	return &s.Bridge.WritePorts[bridge.MasterDCacheW]
}

func (s *Subsystem) AuxWritePort() *bridge.WritePort {
	return &s.Bridge.WritePorts[bridge.MasterAuxW]
}

// DumpState returns a stall-diagnosis summary of every master port and
// the downstream address channels.
func (s *Subsystem) DumpState() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cycle %d\n", s.now)
	for i := range s.Bridge.ReadPorts {
		p := &s.Bridge.ReadPorts[i]
		fmt.Fprintf(&sb, "  read[%d]: req_v=%v req_rdy=%v addr=0x%08x resp_v=%v resp_rdy=%v\n",
			i, p.Req.Valid, p.Req.Ready, p.Req.Addr, p.Resp.Valid, p.Resp.Ready)
	}
	for i := range s.Bridge.WritePorts {
		p := &s.Bridge.WritePorts[i]
		fmt.Fprintf(&sb, "  write[%d]: req_v=%v req_rdy=%v addr=0x%08x resp_v=%v resp_rdy=%v\n",
			i, p.Req.Valid, p.Req.Ready, p.Req.Addr, p.Resp.Valid, p.Resp.Ready)
	}
	axiIO := &s.Bridge.AXI
	fmt.Fprintf(&sb, "  axi: arvalid=%v arready=%v rvalid=%v rready=%v awvalid=%v awready=%v wvalid=%v bvalid=%v",
		axiIO.AR.Valid, axiIO.AR.Ready, axiIO.R.Valid, axiIO.R.Ready,
		axiIO.AW.Valid, axiIO.AW.Ready, axiIO.W.Valid, axiIO.B.Valid)
	return sb.String()
}

// clearInputs resets all upstream request signals; masters re-drive them
// every cycle.
func (s *Subsystem) clearInputs() {
	for i := range s.Bridge.ReadPorts {
		p := &s.Bridge.ReadPorts[i]
		p.Req.Valid = false
		p.Req.Addr = 0
		p.Req.TotalSize = 0
		p.Req.ID = 0
		p.Resp.Ready = false
	}
	for i := range s.Bridge.WritePorts {
		p := &s.Bridge.WritePorts[i]
		p.Req.Valid = false
		p.Req.Addr = 0
		p.Req.Data = axi.Data256{}
		p.Req.Strb = 0
		p.Req.TotalSize = 0
		p.Req.ID = 0
		p.Resp.Ready = false
	}
}
