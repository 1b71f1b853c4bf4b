package httpapi

import (
	"errors"
	"sync"

	"github.com/fairyhunter13/pos-register-simulator/internal/register"
)

var errRegisterLimit = errors.New("register limit reached")

// lane serialises calls to one register.
type lane struct {
	mu  sync.Mutex
	reg *register.Register
}

// lanes hands out registers by id, creating them on first use up to limit.
type lanes struct {
	mu    sync.Mutex
	inv   register.Inventory
	limit int
	byID  map[string]*lane
}

func newLanes(inv register.Inventory, limit int) *lanes {
	return &lanes{inv: inv, limit: limit, byID: make(map[string]*lane)}
}

func (l *lanes) get(id string) (*lane, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ln, ok := l.byID[id]; ok {
		return ln, nil
	}
	if l.limit > 0 && len(l.byID) >= l.limit {
		return nil, errRegisterLimit
	}
	ln := &lane{reg: register.New(id, l.inv)}
	l.byID[id] = ln
	return ln, nil
}

// lookup returns an existing lane without creating one.
func (l *lanes) lookup(id string) (*lane, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln, ok := l.byID[id]
	return ln, ok
}

func (l *lanes) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID)
}

// do runs fn with the register held exclusively.
func (ln *lane) do(fn func(*register.Register) error) error {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	return fn(ln.reg)
}
