package controller

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/ui"
)

var ErrStopped = errors.New("control loop is not running")

// BoxController owns a box and runs its update loop. All access to the box
// goes through the loop goroutine.
type BoxController interface {
	Run(ctx context.Context) error
	// Do runs fn on the loop goroutine and waits for it to finish.
	Do(ctx context.Context, fn func(b *box.Box)) error
	Execute(ctx context.Context, request box.Request) (box.Reply, error)
	// Handle answers a hex request line, it can be used as a
	// connections.Handler.
	Handle(ctx context.Context, line string) string
	Ticks() cbox.Ticks
}

type boxController struct {
	box        *box.Box
	clock      clock.Clock
	updateRate time.Duration
	start      time.Time

	requests chan func(b *box.Box)
	stopped  chan struct{}
}

func NewBoxController(b *box.Box, clk clock.Clock, updateRate time.Duration) BoxController {
	if updateRate <= 0 {
		updateRate = 10 * time.Millisecond
	}
	return &boxController{
		box:        b,
		clock:      clk,
		updateRate: updateRate,
		start:      clk.Now(),
		requests:   make(chan func(b *box.Box)),
		stopped:    make(chan struct{}),
	}
}

// Ticks returns the milliseconds since the controller was created.
func (c *boxController) Ticks() cbox.Ticks {
	return cbox.Ticks(c.clock.Since(c.start).Milliseconds())
}

func (c *boxController) Run(ctx context.Context) error {
	defer close(c.stopped)

	ui.Info("Starting control loop (update rate %v)", c.updateRate)
	c.box.Update(c.Ticks())

	tick := c.clock.Ticker(c.updateRate)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			ui.Info("Stopping control loop")
			return nil
		case <-tick.C:
			c.box.Update(c.Ticks())
		case request := <-c.requests:
			request(c.box)
		}
	}
}

func (c *boxController) Do(ctx context.Context, fn func(b *box.Box)) error {
	done := make(chan struct{})
	request := func(b *box.Box) {
		defer close(done)
		fn(b)
	}

	select {
	case c.requests <- request:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// once accepted, the request always completes
	<-done
	return nil
}

func (c *boxController) Execute(ctx context.Context, request box.Request) (reply box.Reply, err error) {
	err = c.Do(ctx, func(b *box.Box) {
		reply = b.Execute(request)
	})
	return reply, err
}

func (c *boxController) Handle(ctx context.Context, line string) (reply string) {
	err := c.Do(ctx, func(b *box.Box) {
		reply = b.Handle(line)
	})
	if err != nil {
		request, _ := box.DecodeRequest(line)
		return box.Reply{MsgID: request.MsgID, Status: uint8(cbox.ErrUnknown)}.Encode()
	}
	return reply
}
