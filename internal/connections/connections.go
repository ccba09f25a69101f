// Package connections carries the line protocol of the box over TCP and
// serial ports.
package connections

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/markusressel/controlbox/internal/ui"
)

// maxLineLength bounds a single request line, a full object record is far
// below this.
const maxLineLength = 64 * 1024

// Handler answers one request line with one reply line.
type Handler func(ctx context.Context, line string) string

// serveLines reads newline terminated requests from rw and writes one reply
// per request until rw is exhausted or ctx is done.
func serveLines(ctx context.Context, name string, rw io.ReadWriter, handler Handler) error {
	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, 0, 1024), maxLineLength)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := handler(ctx, line)
		if _, err := io.WriteString(rw, reply+"\n"); err != nil {
			return err
		}
		ui.Debug("%s: %s -> %s", name, line, reply)
	}
	return scanner.Err()
}
