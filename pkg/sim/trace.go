package sim

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oisee/axi-kit/pkg/axi"
)

// TraceEvent records one downstream channel handshake.
type TraceEvent struct {
	Cycle   uint64 `json:"cycle"`
	Target  string `json:"target"`  // "ddr" or "mmio"
	Channel string `json:"channel"` // "AR", "R", "AW", "W", "B"
	ID      uint32 `json:"id"`
	Addr    uint32 `json:"addr,omitempty"`
	Resp    uint8  `json:"resp"`
	Last    bool   `json:"last,omitempty"`
}

// Trace accumulates downstream handshakes, one event per channel per
// cycle. Attach it to Subsystem.Trace before running.
type Trace struct {
	Events []TraceEvent
}

func (t *Trace) record(now uint64, target string, p *axi.Port256) {
	if p.AR.Valid && p.AR.Ready {
		t.Events = append(t.Events, TraceEvent{
			Cycle: now, Target: target, Channel: "AR", ID: p.AR.ID, Addr: p.AR.Addr,
		})
	}
	if p.R.Valid && p.R.Ready {
		t.Events = append(t.Events, TraceEvent{
			Cycle: now, Target: target, Channel: "R", ID: p.R.ID, Resp: p.R.Resp, Last: p.R.Last,
		})
	}
	if p.AW.Valid && p.AW.Ready {
		t.Events = append(t.Events, TraceEvent{
			Cycle: now, Target: target, Channel: "AW", ID: p.AW.ID, Addr: p.AW.Addr,
		})
	}
	if p.W.Valid && p.W.Ready {
		t.Events = append(t.Events, TraceEvent{
			Cycle: now, Target: target, Channel: "W", ID: p.W.ID, Last: p.W.Last,
		})
	}
	if p.B.Valid && p.B.Ready {
		t.Events = append(t.Events, TraceEvent{
			Cycle: now, Target: target, Channel: "B", ID: p.B.ID, Resp: p.B.Resp,
		})
	}
}

// Count returns the number of recorded handshakes for a target/channel
// pair; empty strings match everything.
func (t *Trace) Count(target, channel string) int {
	n := 0
	for _, e := range t.Events {
		if (target == "" || e.Target == target) && (channel == "" || e.Channel == channel) {
			n++
		}
	}
	return n
}

// Save writes the trace as indented JSON.
func (t *Trace) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}
