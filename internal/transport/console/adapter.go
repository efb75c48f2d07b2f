// Package console is an interactive stdin adapter for araliyad: typing
// "health", "status", "subsystems", "tree", "shutdown", "enable ID", or
// "disable ID" and pressing enter issues that control command in
// process, without going through the Unix socket. Useful for
// foreground/debug runs. Only prints a prompt when stdin is a real
// terminal (mattn/go-isatty), so piping commands into a backgrounded
// daemon produces clean, prompt-free output.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/araliya/araliyad/internal/kernel"
)

// Adapter reads commands from an io.Reader and writes responses to an
// io.Writer, issuing each as a kernel.Control request.
type Adapter struct {
	in      io.Reader
	out     io.Writer
	control *kernel.Control
	logger  *slog.Logger
	prompt  bool
}

// New creates a console adapter over stdin/stdout.
func New(control *kernel.Control, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		in:      os.Stdin,
		out:     os.Stdout,
		control: control,
		logger:  logger,
		prompt:  isatty.IsTerminal(os.Stdin.Fd()),
	}
}

// Run reads commands until ctx is cancelled or the input is exhausted.
func (a *Adapter) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(a.in)
	for {
		if a.prompt {
			fmt.Fprint(a.out, "araliya> ")
		}

		lineCh := make(chan string, 1)
		go func() {
			if scanner.Scan() {
				lineCh <- scanner.Text()
				return
			}
			close(lineCh)
		}()

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lineCh:
			if !ok {
				return scanner.Err()
			}
			a.handleLine(ctx, strings.TrimSpace(line))
		}
	}
}

func (a *Adapter) handleLine(ctx context.Context, line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd, err := parseCommand(fields)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := a.control.Request(reqCtx, cmd)
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return
	}
	a.printResult(result)
}

func parseCommand(fields []string) (kernel.ControlCommand, error) {
	if len(fields) == 0 {
		return kernel.ControlCommand{}, fmt.Errorf("empty command")
	}
	switch strings.ToLower(fields[0]) {
	case "health":
		return kernel.Health(), nil
	case "status":
		return kernel.Status(), nil
	case "subsystems":
		return kernel.SubsystemsList(), nil
	case "tree":
		return kernel.ComponentTreeCommand(), nil
	case "shutdown":
		return kernel.Shutdown(), nil
	case "enable":
		if len(fields) != 2 {
			return kernel.ControlCommand{}, fmt.Errorf("usage: enable ID")
		}
		return kernel.SubsystemEnable(fields[1]), nil
	case "disable":
		if len(fields) != 2 {
			return kernel.ControlCommand{}, fmt.Errorf("usage: disable ID")
		}
		return kernel.SubsystemDisable(fields[1]), nil
	default:
		return kernel.ControlCommand{}, fmt.Errorf("unknown command %q (try health, status, subsystems, tree, shutdown, enable ID, disable ID)", fields[0])
	}
}

func (a *Adapter) printResult(result kernel.ControlResult) {
	if result.Err != nil {
		fmt.Fprintf(a.out, "%s: %s\n", result.Err.Kind, result.Err.Message)
		return
	}
	switch result.Response.Kind {
	case kernel.RespHealth:
		d := time.Duration(result.Response.UptimeMS) * time.Millisecond
		fmt.Fprintf(a.out, "healthy, up since %s\n", humanize.Time(time.Now().Add(-d)))
	case kernel.RespStatus:
		d := time.Duration(result.Response.UptimeMS) * time.Millisecond
		fmt.Fprintf(a.out, "uptime %s, handlers: %s\n", d, strings.Join(result.Response.Handlers, ", "))
	case kernel.RespSubsystems:
		fmt.Fprintln(a.out, strings.Join(result.Response.Handlers, ", "))
	case kernel.RespComponentTree:
		fmt.Fprintln(a.out, result.Response.TreeJSON)
	case kernel.RespAck:
		fmt.Fprintln(a.out, result.Response.Message)
	}
}
