package field

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultWindow is how long refreshes are ignored after a confirmed mutation.
const DefaultWindow = 2 * time.Second

// Store holds the displayed and confirmed values of a record's scalar fields.
//
// A refresh never overwrites a field while a request is in flight or before the
// field's suppression deadline. A confirmation takes over the displayed value unless
// a newer optimistic write still owns it.
type Store struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	window time.Duration
	fields map[Name]*Field
	seq    uint64

	// OnConfirm is called after a confirmation, outside the store lock.
	OnConfirm func(name Name, value string)
}

// NewStore creates a store tracking the given fields.
func NewStore(clk clockwork.Clock, window time.Duration, names ...Name) *Store {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if len(names) == 0 {
		names = Names()
	}
	fields := make(map[Name]*Field, len(names))
	for _, name := range names {
		fields[name] = &Field{Name: name}
	}
	return &Store{clock: clk, window: window, fields: fields}
}

// Window returns the suppression window width.
func (s *Store) Window() time.Duration {
	return s.window
}

// Seed loads values from an authoritative snapshot, discarding all pending state.
func (s *Store) Seed(values map[Name]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, f := range s.fields {
		v := values[name]
		*f = Field{Name: name, Displayed: v, LastConfirmed: v}
	}
}

// ApplyOptimistic shows value immediately and marks the field in flight.
func (s *Store) ApplyOptimistic(name Name, value string) (Write, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fields[name]
	if !ok {
		return Write{}, ErrUnknownField
	}
	s.seq++
	f.Displayed = value
	f.inFlight++
	f.displayOwner = s.seq
	return Write{Field: name, Seq: s.seq}, nil
}

// Confirm records the server's value for the request identified by w.
func (s *Store) Confirm(w Write, serverValue string) ConfirmOutcome {
	s.mu.Lock()
	f, ok := s.fields[w.Field]
	if !ok {
		s.mu.Unlock()
		return ConfirmOutcome{}
	}

	f.release()
	var out ConfirmOutcome
	if w.Seq < f.confirmedWrite {
		out.Stale = true
		s.mu.Unlock()
		return out
	}
	f.confirmedWrite = w.Seq
	f.LastConfirmed = serverValue
	f.SuppressUntil = s.clock.Now().Add(s.window)
	if f.displayOwner <= w.Seq {
		f.Displayed = serverValue
		f.displayOwner = 0
		out.Displayed = true
	}
	hook := s.OnConfirm
	s.mu.Unlock()

	if hook != nil {
		hook(w.Field, serverValue)
	}
	return out
}

// Reject abandons the request identified by w. It returns true when the displayed
// value was reverted to the last confirmed value.
func (s *Store) Reject(w Write) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fields[w.Field]
	if !ok {
		return false
	}
	f.release()
	if w.Seq != f.displayOwner {
		return false
	}
	f.Displayed = f.LastConfirmed
	f.displayOwner = 0
	return true
}

// ReceiveExternalRefresh applies an out-of-band authoritative value unless the field
// is in flight or suppressed. It returns whether the value was applied.
func (s *Store) ReceiveExternalRefresh(name Name, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fields[name]
	if !ok {
		return false
	}
	if f.Suppressed(s.clock.Now()) {
		return false
	}
	f.Displayed = value
	f.LastConfirmed = value
	return true
}

// Get returns a copy of the named field.
func (s *Store) Get(name Name) (Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fields[name]
	if !ok {
		return Field{}, false
	}
	return *f, true
}

// Values returns the displayed value of every field.
func (s *Store) Values() map[Name]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Name]string, len(s.fields))
	for name, f := range s.fields {
		out[name] = f.Displayed
	}
	return out
}

// Suppressed returns the fields currently ignoring refreshes.
func (s *Store) Suppressed() []Name {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var out []Name
	for _, name := range Names() {
		if f, ok := s.fields[name]; ok && f.Suppressed(now) {
			out = append(out, name)
		}
	}
	return out
}

// Reset drops in-flight marks and suppression deadlines. Displayed values are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.fields {
		f.inFlight = 0
		f.displayOwner = 0
		f.SuppressUntil = time.Time{}
	}
}

func (f *Field) release() {
	if f.inFlight > 0 {
		f.inFlight--
	}
}
