package reports

import "sync"

// Screen identifies one logical dashboard screen for stale-response checks.
type Screen string

// Token is issued when a request for a screen starts.
type Token struct {
	Screen Screen
	Seq    uint64
}

// Guard hands out monotonically increasing tokens per screen so that a
// response which resolves after a newer request started can be discarded.
type Guard struct {
	mu   sync.Mutex
	seqs map[Screen]uint64
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{seqs: make(map[Screen]uint64)}
}

// Begin records a new request for screen. The empty screen is never guarded.
func (g *Guard) Begin(screen Screen) Token {
	if g == nil || screen == "" {
		return Token{Screen: screen}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[screen]++
	return Token{Screen: screen, Seq: g.seqs[screen]}
}

// Current reports whether tok is still the latest request for its screen.
func (g *Guard) Current(tok Token) bool {
	if g == nil || tok.Screen == "" {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seqs[tok.Screen] == tok.Seq
}
