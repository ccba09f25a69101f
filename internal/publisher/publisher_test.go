package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/persistence"
)

type recordingSink struct {
	messages map[string][]byte
	count    int
	err      error
}

func (s *recordingSink) publish(topic string, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	s.count++
	s.messages[topic] = payload
	return nil
}

func newTestPublisher(t *testing.T) (*box.Box, *recordingSink, *Publisher) {
	b := box.New(persistence.NewMemoryStorage(), box.DefaultOptions())
	_, err := b.CreateObjectFromMap(100, 0x01, "TempSensorMock", map[string]interface{}{"setting": 20})
	require.NoError(t, err)
	b.Update(0)
	sink := &recordingSink{messages: map[string][]byte{}}
	return b, sink, NewPublisher(b.Snapshots(), sink.publish, "controlbox", time.Second, clock.NewMock())
}

func TestPublisher_Publish(t *testing.T) {
	// GIVEN
	_, sink, p := newTestPublisher(t)

	// WHEN
	err := p.Publish()

	// THEN
	assert.NoError(t, err)
	assert.Len(t, sink.messages, 4)
	var snapshot box.Snapshot
	require.NoError(t, json.Unmarshal(sink.messages["controlbox/100"], &snapshot))
	assert.Equal(t, "TempSensorMock", snapshot.TypeName)
	assert.Equal(t, 20.0, snapshot.Data["value"])
}

func TestPublisher_SkipsUnchanged(t *testing.T) {
	// GIVEN
	_, sink, p := newTestPublisher(t)
	require.NoError(t, p.Publish())
	count := sink.count

	// WHEN
	err := p.Publish()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, count, sink.count)
}

func TestPublisher_ClearsRemovedObjects(t *testing.T) {
	// GIVEN
	b, sink, p := newTestPublisher(t)
	require.NoError(t, p.Publish())
	b.Execute(box.Request{Opcode: box.OpDeleteObject, Payload: box.IDPayload(100)})

	// WHEN
	err := p.Publish()

	// THEN
	assert.NoError(t, err)
	payload, ok := sink.messages["controlbox/100"]
	assert.True(t, ok)
	assert.Empty(t, payload)
}

func TestPublisher_SinkError(t *testing.T) {
	// GIVEN
	_, sink, p := newTestPublisher(t)
	sink.err = errors.New("broker gone")

	// WHEN
	err := p.Publish()

	// THEN
	assert.ErrorIs(t, err, sink.err)
}

func TestPublisher_RunPublishesOnTick(t *testing.T) {
	// GIVEN
	b := box.New(persistence.NewMemoryStorage(), box.DefaultOptions())
	b.Update(0)
	published := make(chan string, 10)
	mock := clock.NewMock()
	p := NewPublisher(b.Snapshots(), func(topic string, payload []byte) error {
		published <- topic
		return nil
	}, "box", time.Second, mock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result := make(chan error, 1)
	go func() {
		result <- p.Run(ctx)
	}()

	// WHEN
	// the ticker is created by Run, keep advancing until it fires
	var topic string
	assert.Eventually(t, func() bool {
		mock.Add(time.Second)
		select {
		case topic = <-published:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	// THEN
	assert.Equal(t, "box/1", topic)
	cancel()
	assert.NoError(t, <-result)
}
