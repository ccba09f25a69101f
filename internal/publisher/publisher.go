// Package publisher mirrors the object snapshots to an MQTT broker.
package publisher

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/ui"
)

// Sink delivers one retained message. An empty payload clears the retained
// message of the topic.
type Sink func(topic string, payload []byte) error

// Publisher publishes the snapshot of every object as json to
// <topic>/<id>. Unchanged snapshots are not sent again.
type Publisher struct {
	snapshots *box.SnapshotCache
	sink      Sink
	topic     string
	interval  time.Duration
	clock     clock.Clock

	published map[cbox.ObjectID]string
}

func NewPublisher(snapshots *box.SnapshotCache, sink Sink, topic string, interval time.Duration, clk clock.Clock) *Publisher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Publisher{
		snapshots: snapshots,
		sink:      sink,
		topic:     topic,
		interval:  interval,
		clock:     clk,
		published: map[cbox.ObjectID]string{},
	}
}

func (p *Publisher) objectTopic(id cbox.ObjectID) string {
	return p.topic + "/" + strconv.Itoa(int(id))
}

func (p *Publisher) Run(ctx context.Context) error {
	tick := p.clock.Ticker(p.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := p.Publish(); err != nil {
				ui.Warning("Error publishing object state: %v", err)
			}
		}
	}
}

// Publish sends all changed snapshots and clears the topics of removed
// objects.
func (p *Publisher) Publish() error {
	seen := map[cbox.ObjectID]bool{}
	for _, snapshot := range p.snapshots.All() {
		seen[snapshot.ID] = true
		data, err := json.Marshal(snapshot)
		if err != nil {
			return errors.Wrapf(err, "cannot encode object %d", snapshot.ID)
		}
		if p.published[snapshot.ID] == string(data) {
			continue
		}
		if err = p.sink(p.objectTopic(snapshot.ID), data); err != nil {
			return errors.Wrapf(err, "cannot publish object %d", snapshot.ID)
		}
		p.published[snapshot.ID] = string(data)
	}

	for id := range p.published {
		if seen[id] {
			continue
		}
		if err := p.sink(p.objectTopic(id), nil); err != nil {
			return errors.Wrapf(err, "cannot clear object %d", id)
		}
		delete(p.published, id)
	}
	return nil
}
