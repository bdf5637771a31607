package tracker

import (
	"punchsync/internal/punch"
	"sync"
)

// Gate suppresses deliveries of an intent equal to the last one let through.
//
// With nullConfirmations > 1, losing the punch state (with data -> no data)
// is only let through after that many consecutive no data reads, a single
// blank frame while the page re-renders is not a real transition.
type Gate struct {
	nullConfirmations int

	mutex         sync.Mutex
	lastDelivered string
	lastHadData   bool
	pendingNulls  int
}

func NewGate(nullConfirmations int) *Gate {
	if nullConfirmations < 1 {
		nullConfirmations = 1
	}
	return &Gate{nullConfirmations: nullConfirmations}
}

// Admit reports whether the intent should be delivered. An admitted intent
// becomes the last delivered one right away, before the delivery is even
// attempted, so a failed delivery of an unchanged intent is not retried.
func (g *Gate) Admit(intent punch.Intent) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	key := intent.Key()
	if key == g.lastDelivered {
		g.pendingNulls = 0
		return false
	}

	if g.lastHadData && intent.Kind == punch.KindLoggedInNoData {
		g.pendingNulls++
		if g.pendingNulls < g.nullConfirmations {
			return false
		}
	}

	g.pendingNulls = 0
	g.lastDelivered = key
	g.lastHadData = intent.HasData()
	return true
}

// LastDelivered returns the key of the last admitted intent.
func (g *Gate) LastDelivered() string {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.lastDelivered
}
