package fetch

import (
	"sync"

	"wmsdash/internal/models"
)

const (
	EventRefreshed = "refreshed"
	EventStale     = "stale"
	EventFailed    = "error"
	EventSynced    = "synced"
)

func eventRefreshed(name string) models.Event {
	return models.Event{Type: EventRefreshed, Dataset: name}
}

func eventStale(name string) models.Event {
	return models.Event{Type: EventStale, Dataset: name}
}

func eventFailed(name string, err error) models.Event {
	return models.Event{Type: EventFailed, Dataset: name, Error: err.Error()}
}

// subscribers fans events out to listeners. A listener that falls behind
// misses events rather than blocking fetches.
type subscribers struct {
	mu     sync.Mutex
	nextID int
	chans  map[int]chan models.Event
}

func newSubscribers() *subscribers {
	return &subscribers{chans: map[int]chan models.Event{}}
}

func (s *subscribers) add(buffer int) (int, chan models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ch := make(chan models.Event, buffer)
	s.chans[s.nextID] = ch
	return s.nextID, ch
}

func (s *subscribers) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.chans[id]; ok {
		delete(s.chans, id)
		close(ch)
	}
}

func (s *subscribers) publish(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.chans {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a listener for dataset events. The returned func
// unsubscribes and closes the channel.
func (c *Client) Subscribe() (<-chan models.Event, func()) {
	id, ch := c.subs.add(16)
	var once sync.Once
	return ch, func() { once.Do(func() { c.subs.remove(id) }) }
}
