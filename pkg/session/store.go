package session

import (
	"sync"

	"github.com/teslashibe/go-signspeak/pkg/camera"
)

// Store owns the session state. Dispatch applies one action at a time, so
// every update is atomic relative to the others.
type Store struct {
	mu    sync.Mutex
	state State
	order Ordering
	seq   uint64

	subs   map[int]chan State
	nextID int
}

// NewStore creates a store with recording off and the given facing.
func NewStore(facing camera.Facing, order Ordering) *Store {
	if !facing.Valid() {
		facing = camera.FacingBack
	}
	if order == "" {
		order = OrderLatest
	}
	return &Store{
		state: State{Facing: facing},
		order: order,
		subs:  make(map[int]chan State),
	}
}

// Ordering returns the store's ordering policy.
func (s *Store) Ordering() Ordering {
	return s.order
}

// Dispatch applies a and notifies subscribers when the state changed.
func (s *Store) Dispatch(a Action) Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effect := Reduce(s.state, a, s.order)
	s.state = next
	if effect == EffectChanged {
		s.notifyLocked(next)
	}
	return effect
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the current display model.
func (s *Store) View() View {
	return Render(s.State())
}

// NextCycle issues the next cycle sequence number. Numbers start at 1.
func (s *Store) NextCycle() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Subscribe returns a channel that receives the latest state after every
// change. Slow readers only ever see the newest state. Call cancel to stop.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notifyLocked(st State) {
	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			// Replace the unread state with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}
