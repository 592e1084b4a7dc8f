package socket

import "sync"

// TopicBroker broadcasts messages to subscribers of a topic, one topic per
// delivery. Subscribers that fall behind drop messages rather than block
// the publisher; live tracking only needs the latest points.
type TopicBroker struct {
	topics map[string]map[chan []byte]struct{}
	mu     sync.RWMutex
}

const subscriberBuffer = 16

func NewTopicBroker() *TopicBroker {
	return &TopicBroker{
		topics: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe registers a new subscriber on the topic and returns its channel.
func (b *TopicBroker) Subscribe(topic string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, subscriberBuffer)
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[chan []byte]struct{})
	}
	b.topics[topic][ch] = struct{}{}
	return ch
}

// Unsubscribe removes the subscriber and closes its channel. Empty topics
// are dropped.
func (b *TopicBroker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Publish fans the message out to every subscriber of the topic.
func (b *TopicBroker) Publish(topic string, message []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.topics[topic] {
		select {
		case ch <- message:
		default:
		}
	}
}

// Close shuts down every topic and subscriber.
func (b *TopicBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, subs := range b.topics {
		for ch := range subs {
			close(ch)
		}
		delete(b.topics, topic)
	}
}
