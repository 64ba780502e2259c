package bridge

import "github.com/oisee/axi-kit/pkg/axi"

// addrLatch holds an address-channel payload from the cycle its valid is
// first raised until the ready handshake completes. AXI forbids
// retracting VALID, so while driving, the channel is replayed verbatim
// from the latch every cycle. Two states: idle (driving=false) and
// driving (payload held).
type addrLatch struct {
	driving bool
	addr    uint32
	len     uint8
	size    uint8
	burst   uint8
	id      uint32
}

func (l *addrLatch) captureAR(ch *axi.ARChan) {
	l.driving = true
	l.addr = ch.Addr
	l.len = ch.Len
	l.size = ch.Size
	l.burst = ch.Burst
	l.id = ch.ID
}

func (l *addrLatch) driveAR(ch *axi.ARChan) {
	ch.Valid = true
	ch.Addr = l.addr
	ch.Len = l.len
	ch.Size = l.size
	ch.Burst = l.burst
	ch.ID = l.id
}

func (l *addrLatch) set(addr uint32, length, size, burst uint8, id uint32) {
	l.driving = true
	l.addr = addr
	l.len = length
	l.size = size
	l.burst = burst
	l.id = id
}

func (l *addrLatch) driveAW(ch *axi.AWChan) {
	ch.Valid = true
	ch.Addr = l.addr
	ch.Len = l.len
	ch.Size = l.size
	ch.Burst = l.burst
	ch.ID = l.id
}

func (l *addrLatch) release() {
	l.driving = false
}
