package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oisee/axi-kit/pkg/axi"
	"github.com/oisee/axi-kit/pkg/bridge"
)

// FuzzFailure captures one round-trip mismatch with enough context to
// replay it.
type FuzzFailure struct {
	Trial     int    `json:"trial"`
	Master    int    `json:"master"`
	Addr      uint32 `json:"addr"`
	TotalSize uint8  `json:"total_size"`
	Strb      uint32 `json:"wstrb"`
	Got       []byte `json:"got"`
	Want      []byte `json:"want"`
}

// FuzzReport is the aggregated result of a fuzz run.
type FuzzReport struct {
	Trials   int           `json:"trials"`
	Failures []FuzzFailure `json:"failures"`
}

// Save writes the report as indented JSON.
func (r *FuzzReport) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fuzz report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write fuzz report: %w", err)
	}
	return nil
}

// Fuzz runs write-then-read round trips with random offset, size, strobe
// mask and payload across parallel workers, each over its own subsystem
// instance. Every enabled byte must read back exactly; disabled bytes
// must keep their prior memory content.
func Fuzz(cfg Config, trials, workers int, seed int64, verbose bool) *FuzzReport {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	report := &FuzzReport{Trials: trials}
	var mu sync.Mutex
	var completed, failed atomic.Int64

	ch := make(chan int, trials)
	for t := 0; t < trials; t++ {
		ch <- t
	}
	close(ch)

	// Progress reporter, same cadence as the long CLI runs.
	done := make(chan struct{})
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				comp := completed.Load()
				elapsed := time.Since(startTime)
				fmt.Printf("  [%s] %d/%d trials | %d failed\n",
					elapsed.Round(time.Second), comp, trials, failed.Load())
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(seed + int64(workerID)))
			sub := New(cfg, nil, io.Discard)
			memBytes := uint32(cfg.MemWords) * 4

			for trial := range ch {
				if fail, bad := fuzzTrial(sub, rng, trial, memBytes); bad {
					failed.Add(1)
					mu.Lock()
					report.Failures = append(report.Failures, fail)
					mu.Unlock()
					if verbose {
						fmt.Printf("  FAIL trial=%d addr=0x%08x size=%d strb=0x%08x\n",
							fail.Trial, fail.Addr, fail.TotalSize, fail.Strb)
					}
				}
				completed.Add(1)
			}
		}(w)
	}
	wg.Wait()
	close(done)

	elapsed := time.Since(startTime)
	fmt.Printf("  [%s] %d/%d trials | %d failed | DONE\n",
		elapsed.Round(time.Second), completed.Load(), trials, failed.Load())

	return report
}

func fuzzTrial(sub *Subsystem, rng *rand.Rand, trial int, memBytes uint32) (FuzzFailure, bool) {
	addr := rng.Uint32() % (memBytes - 2*axi.DataBytes)
	totalSize := uint8(rng.Intn(axi.DataBytes))
	bytes := uint32(totalSize) + 1
	strb := rng.Uint32() & (1<<bytes - 1)
	wm := rng.Intn(bridge.NumWriteMasters)
	rm := rng.Intn(bridge.NumReadMasters)

	var payload axi.Data256
	for w := range payload {
		payload[w] = rng.Uint32()
	}
	var payloadBytes [axi.DataBytes]byte
	payload.StoreBytes(payloadBytes[:])

	// Expected image: enabled bytes take the payload, the rest keep
	// whatever the backing store already holds.
	want := make([]byte, bytes)
	for i := uint32(0); i < bytes; i++ {
		if strb>>i&1 != 0 {
			want[i] = payloadBytes[i]
		} else {
			want[i] = sub.MemByte(addr + i)
		}
	}

	limit := int(sub.DDR.Latency)*6 + 100
	if _, ok := sub.DoWrite(wm, addr, payload, strb, totalSize, uint8(trial&0xF), limit); !ok {
		return FuzzFailure{Trial: trial, Master: wm, Addr: addr, TotalSize: totalSize, Strb: strb}, true
	}

	res, ok := sub.DoRead(rm, addr, totalSize, uint8(trial&0xF), limit)
	if !ok {
		return FuzzFailure{Trial: trial, Master: rm, Addr: addr, TotalSize: totalSize, Strb: strb}, true
	}

	var got [axi.DataBytes]byte
	res.Data.StoreBytes(got[:])
	for i := uint32(0); i < bytes; i++ {
		if got[i] != want[i] {
			return FuzzFailure{
				Trial: trial, Master: rm, Addr: addr, TotalSize: totalSize, Strb: strb,
				Got: append([]byte(nil), got[:bytes]...), Want: want,
			}, true
		}
	}
	return FuzzFailure{}, false
}
