package socket_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cargo-connect-api-server/internal/socket"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTopicBrokerPublishSubscribe(t *testing.T) {
	broker := socket.NewTopicBroker()
	defer broker.Close()

	sub := broker.Subscribe("DLV-AAAA0001")
	broker.Publish("DLV-AAAA0001", []byte("point 1"))

	select {
	case msg := <-sub:
		assert.Equal(t, []byte("point 1"), msg)
	case <-time.After(time.Second):
		t.Fatal("did not receive message in time")
	}
}

func TestTopicBrokerIsolatesTopics(t *testing.T) {
	broker := socket.NewTopicBroker()
	defer broker.Close()

	a := broker.Subscribe("DLV-AAAA0001")
	b := broker.Subscribe("DLV-BBBB0002")

	broker.Publish("DLV-AAAA0001", []byte("for a"))

	select {
	case msg := <-a:
		assert.Equal(t, []byte("for a"), msg)
	case <-time.After(time.Second):
		t.Fatal("subscriber a got nothing")
	}
	select {
	case msg := <-b:
		t.Fatalf("subscriber b received %q from another topic", msg)
	default:
	}
}

func TestTopicBrokerFanOut(t *testing.T) {
	broker := socket.NewTopicBroker()
	defer broker.Close()

	subs := make([]chan []byte, 3)
	for i := range subs {
		subs[i] = broker.Subscribe("DLV-AAAA0001")
	}
	broker.Publish("DLV-AAAA0001", []byte("everyone"))

	for i, sub := range subs {
		select {
		case msg := <-sub:
			assert.Equal(t, []byte("everyone"), msg)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got nothing", i)
		}
	}
}

func TestTopicBrokerUnsubscribeClosesChannel(t *testing.T) {
	broker := socket.NewTopicBroker()
	defer broker.Close()

	sub := broker.Subscribe("DLV-AAAA0001")
	broker.Unsubscribe("DLV-AAAA0001", sub)

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed")

	// Unsubscribing twice or publishing to the dropped topic is harmless.
	broker.Unsubscribe("DLV-AAAA0001", sub)
	broker.Publish("DLV-AAAA0001", []byte("nobody home"))
}

func TestTopicBrokerSlowSubscriberDropsMessages(t *testing.T) {
	broker := socket.NewTopicBroker()
	defer broker.Close()

	sub := broker.Subscribe("DLV-AAAA0001")
	for i := 0; i < 100; i++ {
		broker.Publish("DLV-AAAA0001", []byte(fmt.Sprintf("point %d", i)))
	}

	// The publisher never blocked; the subscriber kept the buffered prefix.
	count := 0
	for {
		select {
		case <-sub:
			count++
			continue
		default:
		}
		break
	}
	assert.Greater(t, count, 0)
	assert.LessOrEqual(t, count, 16)
}

func TestTopicBrokerConcurrentPublish(t *testing.T) {
	broker := socket.NewTopicBroker()
	defer broker.Close()

	sub := broker.Subscribe("DLV-AAAA0001")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				broker.Publish("DLV-AAAA0001", []byte("x"))
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sub {
		}
	}()

	wg.Wait()
	broker.Unsubscribe("DLV-AAAA0001", sub)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not finish")
	}
}

func TestTopicBrokerClose(t *testing.T) {
	broker := socket.NewTopicBroker()
	a := broker.Subscribe("DLV-AAAA0001")
	b := broker.Subscribe("DLV-BBBB0002")

	broker.Close()

	_, ok := <-a
	require.False(t, ok)
	_, ok = <-b
	require.False(t, ok)
}
