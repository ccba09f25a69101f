package controller

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markusressel/controlbox/internal/blocks"
	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/persistence"
)

func startController(t *testing.T) (*box.Box, *clock.Mock, BoxController, context.CancelFunc, chan error) {
	b := box.New(persistence.NewMemoryStorage(), box.DefaultOptions())
	mock := clock.NewMock()
	c := NewBoxController(b, mock, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- c.Run(ctx)
	}()
	t.Cleanup(cancel)
	return b, mock, c, cancel, result
}

func TestBoxController_Do(t *testing.T) {
	// GIVEN
	_, _, c, _, _ := startController(t)

	// WHEN
	var count int
	err := c.Do(context.Background(), func(b *box.Box) {
		count = b.Container().Len()
	})

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestBoxController_UpdatesOnTick(t *testing.T) {
	// GIVEN
	b, mock, c, _, _ := startController(t)
	require.NoError(t, c.Do(context.Background(), func(b *box.Box) {}))
	before := b.Cycles()

	// WHEN
	mock.Add(100 * time.Millisecond)

	// THEN
	assert.Eventually(t, func() bool {
		return b.Cycles() > before
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, cbox.Ticks(100), c.Ticks())
}

func TestBoxController_Execute(t *testing.T) {
	// GIVEN
	_, _, c, _, _ := startController(t)
	request := box.Request{MsgID: 5, Opcode: box.OpReadObject, Payload: box.IDPayload(blocks.SysInfoID)}

	// WHEN
	reply, err := c.Execute(context.Background(), request)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, uint16(5), reply.MsgID)
	assert.NoError(t, reply.Err())
}

func TestBoxController_Handle(t *testing.T) {
	// GIVEN
	_, _, c, _, _ := startController(t)
	line := box.Request{MsgID: 6, Opcode: box.OpDeleteObject, Payload: box.IDPayload(blocks.GroupsID)}.Encode()

	// WHEN
	reply, err := box.DecodeReply(c.Handle(context.Background(), line))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, uint16(6), reply.MsgID)
	assert.ErrorIs(t, reply.Err(), cbox.ErrObjectNotDeletable)
}

func TestBoxController_Stopped(t *testing.T) {
	// GIVEN
	_, _, c, cancel, result := startController(t)
	cancel()
	require.NoError(t, <-result)

	// WHEN
	err := c.Do(context.Background(), func(b *box.Box) {})

	// THEN
	assert.ErrorIs(t, err, ErrStopped)

	reply, decodeErr := box.DecodeReply(c.Handle(context.Background(), box.Request{MsgID: 3}.Encode()))
	require.NoError(t, decodeErr)
	assert.Equal(t, uint16(3), reply.MsgID)
	assert.ErrorIs(t, reply.Err(), cbox.ErrUnknown)
}
