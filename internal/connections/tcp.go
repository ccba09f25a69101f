package connections

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/markusressel/controlbox/internal/ui"
)

// TcpServer accepts any number of clients, each speaking the line protocol.
type TcpServer struct {
	address string
	handler Handler

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

func NewTcpServer(address string, handler Handler) *TcpServer {
	return &TcpServer{
		address: address,
		handler: handler,
		ready:   make(chan struct{}),
	}
}

// Addr blocks until the server listens and returns its address.
func (s *TcpServer) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil, net.ErrClosed
	}
	return s.listener.Addr(), nil
}

// Run serves clients until ctx is done.
func (s *TcpServer) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		close(s.ready)
		return pkgerrors.Wrapf(err, "cannot listen on %s", s.address)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)
	ui.Info("Listening for commands on tcp %s", listener.Addr())

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return pkgerrors.Wrap(err, "accept failed")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serve(ctx, conn)
		}()
	}
}

func (s *TcpServer) serve(ctx context.Context, conn net.Conn) {
	name := conn.RemoteAddr().String()
	ui.Debug("Client %s connected", name)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	if err := serveLines(ctx, name, conn, s.handler); err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		ui.Warning("Connection to %s failed: %v", name, err)
	}
	_ = conn.Close()
	ui.Debug("Client %s disconnected", name)
}

// Send connects to a running box, sends one request line and returns the
// reply line.
func Send(ctx context.Context, address string, line string) (string, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "cannot connect to %s", address)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err = conn.Write([]byte(strings.TrimSpace(line) + "\n")); err != nil {
		return "", pkgerrors.Wrap(err, "cannot send request")
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", pkgerrors.Wrap(err, "cannot read reply")
	}
	return strings.TrimSpace(reply), nil
}
