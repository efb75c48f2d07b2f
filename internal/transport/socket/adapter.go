// Package socket is the Unix domain socket control adapter: the
// primary transport for araliyactl. It speaks the line-delimited JSON
// protocol from spec §6 — one ControlCommand per line in, one
// WireResponse per line out — and otherwise knows nothing about the
// kernel beyond its *kernel.Control handle.
package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/araliya/araliyad/internal/kernel"
)

// Adapter listens on a Unix domain socket and answers each connection's
// control requests in order.
type Adapter struct {
	path    string
	control *kernel.Control
	logger  *slog.Logger

	listener net.Listener
}

// New creates an adapter bound to path (not yet listening).
func New(path string, control *kernel.Control, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{path: path, control: control, logger: logger}
}

// ListenAndServe removes any stale socket file, binds path, and serves
// connections until ctx is cancelled. It returns nil on a clean
// shutdown triggered by ctx.
func (a *Adapter) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o700); err != nil {
		return err
	}
	if err := removeStaleSocket(a.path); err != nil {
		return err
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "unix", a.path)
	if err != nil {
		return err
	}
	a.listener = ln
	a.logger.Info("control socket listening", "path", a.path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				a.logger.Error("accept failed", "error", err)
				return err
			}
		}
		go a.serveConn(ctx, conn)
	}
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (a *Adapter) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cmd kernel.ControlCommand
		if err := json.Unmarshal(line, &cmd); err != nil {
			a.writeError(writer, kernel.InvalidError("malformed request: "+err.Error()))
			continue
		}

		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		result, err := a.control.Request(reqCtx, cmd)
		cancel()
		if err != nil {
			a.writeError(writer, kernel.InvalidError(err.Error()))
			continue
		}
		a.writeResult(writer, result)
	}
}

func (a *Adapter) writeResult(w *bufio.Writer, result kernel.ControlResult) {
	wire := kernel.NewWireResponse(result)
	blob, err := json.Marshal(wire)
	if err != nil {
		a.logger.Error("failed to encode control response", "error", err)
		return
	}
	w.Write(blob)
	w.WriteByte('\n')
	w.Flush()
}

func (a *Adapter) writeError(w *bufio.Writer, cerr *kernel.ControlError) {
	a.writeResult(w, kernel.ControlResult{Err: cerr})
}

// Close stops accepting new connections.
func (a *Adapter) Close() error {
	if a.listener == nil {
		return nil
	}
	return a.listener.Close()
}
