package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/danmuck/onebyte/internal/fault"
	"github.com/danmuck/onebyte/internal/logging"
	"github.com/danmuck/onebyte/internal/transport"
)

const usage = `usage: onebytectl [-config path] [-addr host:port] <command> [args]

commands:
  read [count] [offset]     read count bytes (default 64) from offset (default 0)
  write <data> [offset]     write data at offset (default 0); offset may equal the length to append
  seek <delta> <whence>     resolve a seek; whence is set|cur|end or 0|1|2
  hello                     log a hello line on the device
  set <msg>                 install msg as the control message
  get [size]                print the control message (buffer size default 256)
  exchange <msg> [size]     install msg and print the previous message
`

var errUsage = errors.New("usage")

func main() {
	logging.ConfigureRuntime()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "onebytectl: %v\n", err)
		if kind := fault.KindOf(err); kind != fault.KindUnknown {
			os.Exit(int(kind.Errno()))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("onebytectl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("config", "", "client config path")
	addr := fs.String("addr", "", "daemon address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cfg := defaultClientConfig()
	if *path != "" {
		loaded, err := loadClientConfig(*path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if _, ok := commands[cmd]; !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	client, err := transport.Dial(ctx, cfg.Addr, cfg.Dial)
	if err != nil {
		return err
	}
	defer client.Close()
	return commands[cmd](ctx, client, rest, out)
}

type command func(ctx context.Context, c *transport.Client, args []string, out io.Writer) error

var commands = map[string]command{
	"read":     cmdRead,
	"write":    cmdWrite,
	"seek":     cmdSeek,
	"hello":    cmdHello,
	"set":      cmdSet,
	"get":      cmdGet,
	"exchange": cmdExchange,
}

func cmdRead(ctx context.Context, c *transport.Client, args []string, out io.Writer) error {
	count, err := intArg(args, 0, 64)
	if err != nil {
		return err
	}
	offset, err := intArg(args, 1, 0)
	if err != nil {
		return err
	}
	return withHandle(ctx, c, func(h uint64) error {
		data, err := c.ReadAt(ctx, h, count, int64(offset))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%q\n", data)
		return err
	})
}

func cmdWrite(ctx context.Context, c *transport.Client, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	offset, err := intArg(args, 1, 0)
	if err != nil {
		return err
	}
	return withHandle(ctx, c, func(h uint64) error {
		n, err := c.WriteAt(ctx, h, []byte(args[0]), int64(offset))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "wrote %d bytes at %d\n", n, offset)
		return err
	})
}

func cmdSeek(ctx context.Context, c *transport.Client, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	delta, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse delta: %w", err)
	}
	whence, err := parseWhence(args[1])
	if err != nil {
		return err
	}
	return withHandle(ctx, c, func(h uint64) error {
		pos, err := c.Seek(ctx, h, delta, whence)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%d\n", pos)
		return err
	})
}

func cmdHello(ctx context.Context, c *transport.Client, _ []string, out io.Writer) error {
	if err := c.Hello(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "ok")
	return err
}

func cmdSet(ctx context.Context, c *transport.Client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := c.Set(ctx, args[0]); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "ok")
	return err
}

func cmdGet(ctx context.Context, c *transport.Client, args []string, out io.Writer) error {
	size, err := intArg(args, 0, 256)
	if err != nil {
		return err
	}
	msg, err := c.Get(ctx, size)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%q\n", msg)
	return err
}

func cmdExchange(ctx context.Context, c *transport.Client, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	size, err := intArg(args, 1, 256)
	if err != nil {
		return err
	}
	old, err := c.Exchange(ctx, args[0], size)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%q\n", old)
	return err
}

// withHandle opens a handle for fn and releases it afterwards.
func withHandle(ctx context.Context, c *transport.Client, fn func(h uint64) error) error {
	h, err := c.Open(ctx)
	if err != nil {
		return err
	}
	defer c.Release(ctx, h)
	return fn(h)
}

func intArg(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: argument %d must be a non-negative integer", errUsage, i+1)
	}
	return v, nil
}

func parseWhence(raw string) (int, error) {
	switch strings.ToLower(raw) {
	case "set", "start", "0":
		return io.SeekStart, nil
	case "cur", "current", "1":
		return io.SeekCurrent, nil
	case "end", "2":
		return io.SeekEnd, nil
	default:
		return 0, fmt.Errorf("%w: whence %q", errUsage, raw)
	}
}
