package gateway

import (
	"sync/atomic"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// Counters counts dispatch outcomes. It is a telegram.Listener and safe
// for concurrent use.
type Counters struct {
	received    atomic.Uint64
	decoded     atomic.Uint64
	checksum    atomic.Uint64
	malformed   atomic.Uint64
	unsupported atomic.Uint64
	unbound     atomic.Uint64
	teachIns    atomic.Uint64
	empty       atomic.Uint64
}

var _ telegram.Listener = (*Counters)(nil)

// OnTelegram counts one result.
func (c *Counters) OnTelegram(res telegram.Result) {
	c.received.Add(1)

	switch res.Outcome() {
	case telegram.OutcomeRejected:
		if res.State == telegram.StateChecksumError {
			c.checksum.Add(1)
		} else {
			c.malformed.Add(1)
		}
	case telegram.OutcomeDecoded:
		c.decoded.Add(1)
	case telegram.OutcomeUnsupported:
		c.unsupported.Add(1)
	case telegram.OutcomeUnbound:
		c.unbound.Add(1)
	case telegram.OutcomeTeachIn:
		c.teachIns.Add(1)
	case telegram.OutcomeEmpty:
		c.empty.Add(1)
	}
}

// Snapshot returns the current counts.
func (c *Counters) Snapshot() TelegramStatistics {
	checksum := c.checksum.Load()
	malformed := c.malformed.Load()
	return TelegramStatistics{
		Received:       c.received.Load(),
		Decoded:        c.decoded.Load(),
		Rejected:       checksum + malformed,
		ChecksumErrors: checksum,
		Malformed:      malformed,
		Unsupported:    c.unsupported.Load(),
		Unbound:        c.unbound.Load(),
		TeachIns:       c.teachIns.Load(),
		Empty:          c.empty.Load(),
	}
}
