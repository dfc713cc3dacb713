package bipring

import "sync"

// Stat is a point-in-time view of one tracked ring, cheap enough to take
// from a diagnostics path while both endpoints keep running.
type Stat struct {
	Name     string
	Cap      int
	Buffered int
	Wrapped  bool
}

var (
	trackMu sync.Mutex
	tracked map[string]*Ring
)

// Track makes r visible to Stats under name. A later Track with the same
// name replaces the earlier entry; services use their own id here.
func Track(name string, r *Ring) {
	if r == nil {
		return
	}
	trackMu.Lock()
	if tracked == nil {
		tracked = map[string]*Ring{}
	}
	tracked[name] = r
	trackMu.Unlock()
}

// Untrack removes name from the registry. The ring itself is untouched.
func Untrack(name string) {
	trackMu.Lock()
	delete(tracked, name)
	trackMu.Unlock()
}

// Stats snapshots every tracked ring. The cursor reads race benignly with
// the endpoints: each snapshot is internally consistent enough for
// diagnostics, nothing more.
func Stats() []Stat {
	trackMu.Lock()
	out := make([]Stat, 0, len(tracked))
	for name, r := range tracked {
		out = append(out, Stat{
			Name:     name,
			Cap:      r.Cap(),
			Buffered: r.Buffered(),
			Wrapped:  r.Wrapped(),
		})
	}
	trackMu.Unlock()
	return out
}
