package keyValue

import (
	"sync"

	"go.uber.org/zap"
)

const subscriberBuffer = 16

type localSubscriber struct {
	id int64
	ch chan<- Change
}

type LocalPubSub struct {
	sugar   *zap.SugaredLogger
	mutex   sync.RWMutex
	nextID  int64
	hashMap map[string][]localSubscriber
}

func NewLocalPubSub(sugar *zap.SugaredLogger) *LocalPubSub {
	return &LocalPubSub{
		sugar:   sugar,
		hashMap: make(map[string][]localSubscriber),
	}
}

func (ps *LocalPubSub) Subscribe(channel string, ch chan<- Change) int64 {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.nextID++
	ps.hashMap[channel] = append(ps.hashMap[channel], localSubscriber{id: ps.nextID, ch: ch})

	return ps.nextID
}

func (ps *LocalPubSub) Unsubscribe(channel string, id int64) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	subscribers := ps.hashMap[channel]

	// this won't run in case channel doesn't exist since length will be 0
	for i := range subscribers {
		if subscribers[i].id == id {
			subscribers[i] = subscribers[len(subscribers)-1]
			ps.hashMap[channel] = subscribers[:len(subscribers)-1]
			break
		}
	}

	// delete channel from map if nobody is subscribed to it
	if len(ps.hashMap[channel]) == 0 {
		delete(ps.hashMap, channel)
	}
}

// Publish never blocks. A subscriber with a full buffer misses the change,
// the next one carries the whole value anyway.
func (ps *LocalPubSub) Publish(channel string, change Change) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	subscribers := ps.hashMap[channel]
	for i := range subscribers {
		select {
		case subscribers[i].ch <- change:
		default:
			ps.sugar.Warnf("Subscriber %d on %s is full, dropping version %d", subscribers[i].id, channel, change.Version)
		}
	}
}

func (ps *LocalPubSub) SubscriberCount(channel string) int {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	return len(ps.hashMap[channel])
}
