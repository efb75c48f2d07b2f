// Command araliyactl is the control-socket CLI client for araliyad. It
// speaks the same line-delimited JSON protocol the daemon's Unix
// socket adapter understands, using github.com/google/subcommands for
// its command surface (grounded on _examples/Aglay-fuchsia/cmd/botanist).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"

	"github.com/araliya/araliyad/internal/kernel"
)

var socketFlag string

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&healthCmd{}, "")
	subcommands.Register(&statusCmd{}, "")
	subcommands.Register(&subsystemsCmd{}, "")
	subcommands.Register(&treeCmd{}, "")
	subcommands.Register(&shutdownCmd{}, "")
	subcommands.Register(&enableCmd{}, "")
	subcommands.Register(&disableCmd{}, "")

	flag.StringVar(&socketFlag, "socket", "", "control socket path (overrides $ARALIYA_WORK_DIR and ~/.araliya)")
	flag.Parse()

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

// resolveSocketPath follows the original_source order: --socket flag,
// then $ARALIYA_WORK_DIR/araliya.sock, then ~/.araliya/araliya.sock.
func resolveSocketPath() (string, error) {
	if socketFlag != "" {
		return socketFlag, nil
	}
	if workDir := os.Getenv("ARALIYA_WORK_DIR"); workDir != "" {
		return filepath.Join(workDir, "araliya.sock"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".araliya", "araliya.sock"), nil
}

// sendCommand dials the control socket, writes one command line, and
// reads back one WireResponse line.
func sendCommand(ctx context.Context, cmd kernel.ControlCommand) (kernel.ControlResult, error) {
	path, err := resolveSocketPath()
	if err != nil {
		return kernel.ControlResult{}, err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return kernel.ControlResult{}, fmt.Errorf("connect to %s: %w", path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return kernel.ControlResult{}, err
	}
	if _, err := conn.Write(append(body, '\n')); err != nil {
		return kernel.ControlResult{}, fmt.Errorf("write request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return kernel.ControlResult{}, fmt.Errorf("read response: %w", err)
		}
		return kernel.ControlResult{}, fmt.Errorf("connection closed before a response was received")
	}

	var wire kernel.WireResponse
	if err := json.Unmarshal(scanner.Bytes(), &wire); err != nil {
		return kernel.ControlResult{}, fmt.Errorf("malformed response: %w", err)
	}
	return wire.Result, nil
}

// runCommand sends cmd, prints the response or error, and returns the
// exit status subcommands.Execute should use.
func runCommand(ctx context.Context, cmd kernel.ControlCommand) subcommands.ExitStatus {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := sendCommand(reqCtx, cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return subcommands.ExitFailure
	}
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", result.Err.Kind, result.Err.Message)
		return subcommands.ExitFailure
	}
	printResponse(result.Response)
	return subcommands.ExitSuccess
}

func printResponse(resp kernel.ControlResponse) {
	switch resp.Kind {
	case kernel.RespHealth:
		fmt.Printf("healthy, uptime %s\n", formatUptime(resp.UptimeMS))
	case kernel.RespStatus:
		fmt.Printf("uptime %s\n", formatUptime(resp.UptimeMS))
		for _, h := range resp.Handlers {
			fmt.Println("  -", h)
		}
	case kernel.RespSubsystems:
		for _, h := range resp.Handlers {
			fmt.Println(h)
		}
	case kernel.RespComponentTree:
		fmt.Println(resp.TreeJSON)
	case kernel.RespAck:
		fmt.Println(resp.Message)
	}
}

// formatUptime renders milliseconds as "{secs}.{ms:03}s", the wire
// format the original araliya-ctl used, plus a humanized form.
func formatUptime(ms uint64) string {
	secs := ms / 1000
	rem := ms % 1000
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d.%03ds (%s)", secs, rem, humanize.RelTime(time.Now().Add(-d), time.Now(), "", ""))
}

type healthCmd struct{}

func (*healthCmd) Name() string             { return "health" }
func (*healthCmd) Synopsis() string         { return "report daemon health" }
func (*healthCmd) Usage() string            { return "health\n" }
func (*healthCmd) SetFlags(_ *flag.FlagSet) {}
func (*healthCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return runCommand(ctx, kernel.Health())
}

type statusCmd struct{}

func (*statusCmd) Name() string             { return "status" }
func (*statusCmd) Synopsis() string         { return "report daemon status and registered handlers" }
func (*statusCmd) Usage() string            { return "status\n" }
func (*statusCmd) SetFlags(_ *flag.FlagSet) {}
func (*statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return runCommand(ctx, kernel.Status())
}

type subsystemsCmd struct{}

func (*subsystemsCmd) Name() string             { return "subsystems" }
func (*subsystemsCmd) Synopsis() string         { return "list registered subsystem handlers" }
func (*subsystemsCmd) Usage() string            { return "subsystems\n" }
func (*subsystemsCmd) SetFlags(_ *flag.FlagSet) {}
func (*subsystemsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return runCommand(ctx, kernel.SubsystemsList())
}

type treeCmd struct{}

func (*treeCmd) Name() string             { return "tree" }
func (*treeCmd) Synopsis() string         { return "print the component info tree as JSON" }
func (*treeCmd) Usage() string            { return "tree\n" }
func (*treeCmd) SetFlags(_ *flag.FlagSet) {}
func (*treeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return runCommand(ctx, kernel.ComponentTreeCommand())
}

type shutdownCmd struct{}

func (*shutdownCmd) Name() string             { return "shutdown" }
func (*shutdownCmd) Synopsis() string         { return "ask the daemon to shut down" }
func (*shutdownCmd) Usage() string            { return "shutdown\n" }
func (*shutdownCmd) SetFlags(_ *flag.FlagSet) {}
func (*shutdownCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return runCommand(ctx, kernel.Shutdown())
}

type enableCmd struct{}

func (*enableCmd) Name() string             { return "enable" }
func (*enableCmd) Synopsis() string         { return "enable a subsystem by id" }
func (*enableCmd) Usage() string            { return "enable ID\n" }
func (*enableCmd) SetFlags(_ *flag.FlagSet) {}
func (*enableCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: enable ID")
		return subcommands.ExitUsageError
	}
	return runCommand(ctx, kernel.SubsystemEnable(f.Arg(0)))
}

type disableCmd struct{}

func (*disableCmd) Name() string             { return "disable" }
func (*disableCmd) Synopsis() string         { return "disable a subsystem by id" }
func (*disableCmd) Usage() string            { return "disable ID\n" }
func (*disableCmd) SetFlags(_ *flag.FlagSet) {}
func (*disableCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: disable ID")
		return subcommands.ExitUsageError
	}
	return runCommand(ctx, kernel.SubsystemDisable(f.Arg(0)))
}
