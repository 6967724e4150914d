package eventstreamserver

import (
	"sync"

	"github.com/shivlim/casper-node/src/common"
)

type message struct {
	id   uint64
	data []byte
}

type subscriber struct {
	ch chan message
}

// broker fans published messages out to subscribers and remembers the most
// recent ones for replay.
type broker struct {
	sync.Mutex

	nextID  uint64
	history *common.RollingIndex[message]

	subscribers map[uint64]*subscriber
	nextSub     uint64
	bufferSize  int
	closed      bool
}

func newBroker(historyLength, bufferSize int) *broker {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &broker{
		history:     common.NewRollingIndex[message]("event_stream", historyLength),
		subscribers: make(map[uint64]*subscriber),
		bufferSize:  bufferSize,
	}
}

// publish assigns data the next event id and hands it to every subscriber.
// Subscribers whose buffer is full are dropped. It returns how many were.
func (b *broker) publish(data []byte) (id uint64, dropped int) {
	b.Lock()
	defer b.Unlock()

	m := message{id: b.nextID, data: data}
	b.nextID++
	b.history.Set(m, m.id)

	for subID, s := range b.subscribers {
		select {
		case s.ch <- m:
		default:
			close(s.ch)
			delete(b.subscribers, subID)
			dropped++
		}
	}
	return m.id, dropped
}

// subscribe registers a subscriber. If lastID is set, the messages published
// after it that are still remembered are returned for replay; when lastID is
// too old the whole remembered window is.
func (b *broker) subscribe(lastID *uint64) (uint64, <-chan message, []message) {
	b.Lock()
	defer b.Unlock()

	ch := make(chan message, b.bufferSize)
	if b.closed {
		close(ch)
		return 0, ch, nil
	}

	var replay []message
	if lastID != nil {
		var err error
		replay, err = b.history.Since(*lastID)
		if common.IsIndexErr(err, common.TooLate) {
			window, _ := b.history.GetLastWindow()
			replay = append([]message(nil), window...)
		}
	}

	id := b.nextSub
	b.nextSub++
	b.subscribers[id] = &subscriber{ch: ch}
	return id, ch, replay
}

func (b *broker) unsubscribe(id uint64) {
	b.Lock()
	defer b.Unlock()
	if s, ok := b.subscribers[id]; ok {
		close(s.ch)
		delete(b.subscribers, id)
	}
}

func (b *broker) count() int {
	b.Lock()
	defer b.Unlock()
	return len(b.subscribers)
}

// close disconnects every subscriber and refuses new ones.
func (b *broker) close() {
	b.Lock()
	defer b.Unlock()
	b.closed = true
	for id, s := range b.subscribers {
		close(s.ch)
		delete(b.subscribers, id)
	}
}
