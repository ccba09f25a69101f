package connections

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/markusressel/controlbox/internal/ui"
)

// OpenSerial opens a serial device. It is a variable so tests can replace
// the hardware.
var OpenSerial = func(port string, baudRate int) (io.ReadWriteCloser, error) {
	return serial.Open(port, &serial.Mode{BaudRate: baudRate})
}

// SerialConnection speaks the line protocol over a serial port.
type SerialConnection struct {
	port     string
	baudRate int
	handler  Handler
}

func NewSerialConnection(port string, baudRate int, handler Handler) *SerialConnection {
	return &SerialConnection{
		port:     port,
		baudRate: baudRate,
		handler:  handler,
	}
}

// Run serves requests until ctx is done or the port fails.
func (c *SerialConnection) Run(ctx context.Context) error {
	device, err := OpenSerial(c.port, c.baudRate)
	if err != nil {
		return errors.Wrapf(err, "cannot open serial port %s", c.port)
	}
	ui.Info("Listening for commands on serial port %s (%d baud)", c.port, c.baudRate)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = device.Close()
		case <-done:
		}
	}()

	err = serveLines(ctx, c.port, device, c.handler)
	_ = device.Close()
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return errors.Wrapf(err, "serial port %s closed", c.port)
}

// SerialPorts lists the serial ports of the host.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
