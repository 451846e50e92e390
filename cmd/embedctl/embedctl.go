// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Program embedctl is a command-line utility for talking to embedded score
// viewers, and for serving fake viewers to test hosts against.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/flatembed"
	"github.com/creachadair/flatembed/channel"
	"github.com/creachadair/flatembed/frame"
	"github.com/creachadair/flatembed/handler"
	"github.com/creachadair/flatembed/peers"
	"github.com/creachadair/flax"
	"github.com/creachadair/taskgroup"
	"github.com/golang/glog"
)

var connFlags struct {
	Bridge  string        `flag:"bridge,default=ws://localhost:8808/viewer,Viewer endpoint (ws://, wss://, or host:port for JSON lines)"`
	Config  string        `flag:"config,Path of a YAML file of embed parameters"`
	Timeout time.Duration `flag:"timeout,default=10s,Time limit for the viewer to respond"`
}

var serveFlags struct {
	Addr   string `flag:"addr,default=localhost:8808,Service address"`
	TCP    bool   `flag:"tcp,Serve JSON lines over TCP instead of WebSocket"`
	Origin string `flag:"origin,Origin reported by the viewer"`
}

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: "Utilities for talking to embedded score viewers.",
		Commands: []*command.C{
			{
				Name:  "encode",
				Usage: "<method> [<params-json>]",
				Help:  "Print the message that calls a viewer method.",
				Run:   runEncode,
			},
			{
				Name:  "decode",
				Usage: "[<message-json>...]",
				Help: `Decode messages from a viewer and print a summary of each.

If no messages are given as arguments, one message per line is read from stdin.`,
				Run: runDecode,
			},
			{
				Name:     "url",
				Usage:    "[score-id]",
				Help:     "Print the iframe source URL for a score.",
				SetFlags: command.Flags(flax.MustBind, &connFlags),
				Run:      runURL,
			},
			{
				Name:     "call",
				Usage:    "<method> [<params-json>]",
				Help:     "Call a method of a viewer and print its response.",
				SetFlags: command.Flags(flax.MustBind, &connFlags),
				Run:      runCall,
			},
			{
				Name:     "watch",
				Usage:    "<event>...",
				Help:     "Subscribe to viewer events and print them until interrupted.",
				SetFlags: command.Flags(flax.MustBind, &connFlags),
				Run:      runWatch,
			},
			{
				Name:  "serve",
				Usage: "[method=json-value...]",
				Help: `Serve fake viewers for hosts to connect to.

Each argument defines a method the viewer answers with a constant value.
Other methods, except the probe and event registration, echo their
parameters.`,
				SetFlags: command.Flags(flax.MustBind, &serveFlags),
				Run:      runServe,
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

func runEncode(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("missing method name")
	}
	params, err := parseParams(env.Args[1:])
	if err != nil {
		return err
	}
	out, err := json.Marshal(flatembed.Encode(env.Args[0], params))
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runDecode(env *command.Env) error {
	inputs := env.Args
	if len(inputs) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		for line := range strings.Lines(string(data)) {
			if t := strings.TrimSpace(line); t != "" {
				inputs = append(inputs, t)
			}
		}
	}
	var nerr int
	for _, in := range inputs {
		msg, err := flatembed.Decode(in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			nerr++
			continue
		}
		fmt.Println(msg)
	}
	if nerr != 0 {
		return fmt.Errorf("%d of %d messages could not be decoded", nerr, len(inputs))
	}
	return nil
}

func runURL(env *command.Env) error {
	p, err := loadParams()
	if err != nil {
		return err
	}
	if len(env.Args) > 1 {
		return env.Usagef("extra arguments: %q", env.Args[1:])
	} else if len(env.Args) == 1 {
		p.Score = env.Args[0]
	}
	u, err := frame.URL(p)
	if err != nil {
		return err
	}
	fmt.Println(u)
	return nil
}

func runCall(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("missing method name")
	}
	params, err := parseParams(env.Args[1:])
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return withEmbed(ctx, func(ctx context.Context, e *flatembed.Embed) error {
		ctx, cancel := context.WithTimeout(ctx, connFlags.Timeout)
		defer cancel()
		rsp, err := e.Call(ctx, env.Args[0], params)
		if err != nil {
			return err
		}
		if len(rsp) == 0 {
			rsp = json.RawMessage("null")
		}
		fmt.Println(string(rsp))
		return nil
	})
}

func runWatch(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("missing event names")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return withEmbed(ctx, func(ctx context.Context, e *flatembed.Embed) error {
		for _, name := range env.Args {
			if _, err := e.On(name, func(params json.RawMessage) {
				fmt.Printf("%s\t%s\n", name, params)
			}); err != nil {
				return err
			}
		}
		<-ctx.Done()
		return nil
	})
}

// withEmbed connects to the viewer endpoint, waits for the viewer to be
// ready, and calls f with its embed.
func withEmbed(ctx context.Context, f func(context.Context, *flatembed.Embed) error) error {
	p, err := loadParams()
	if err != nil {
		return err
	}
	ch, err := dial(ctx, connFlags.Bridge)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	h := flatembed.NewHost().Start(ch)
	defer func() {
		if err := h.Stop(); err != nil {
			glog.Warningf("Host stopped: %v", err)
		}
	}()

	doc := frame.NewDocument()
	box := doc.CreateElement("div")
	doc.Append(doc.Body(), box)
	e, err := h.Embed(box, p)
	if err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(ctx, connFlags.Timeout)
	defer cancel()
	if err := e.Ready(rctx); err != nil {
		return fmt.Errorf("waiting for viewer: %w", err)
	}
	return f(ctx, e)
}

func dial(ctx context.Context, addr string) (flatembed.Channel, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return channel.Dial(ctx, addr, nil)
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return channel.IO(conn, conn), nil
}

func runServe(env *command.Env) error {
	values := make(map[string]json.RawMessage)
	for _, arg := range env.Args {
		method, value, ok := strings.Cut(arg, "=")
		if !ok || method == "" {
			return env.Usagef("invalid method definition %q", arg)
		} else if !json.Valid([]byte(value)) {
			return fmt.Errorf("method %q: invalid JSON value %q", method, value)
		}
		values[method] = json.RawMessage(value)
	}
	newViewer := func() *peers.Viewer {
		v := peers.NewViewer()
		v.Origin = serveFlags.Origin
		for method, value := range values {
			v.Handle(method, handler.Value(value))
		}
		return v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	lst, err := net.Listen("tcp", serveFlags.Addr)
	if err != nil {
		return err
	}
	if serveFlags.TCP {
		fmt.Fprintf(os.Stderr, "Serving JSON lines at %s\n", lst.Addr())
		return peers.Loop(ctx, peers.NetAccepter(lst), echoAll(newViewer))
	}

	up := new(channel.Upgrader)
	mux := http.NewServeMux()
	mux.Handle("/viewer", up)
	srv := &http.Server{Handler: mux}

	fmt.Fprintf(os.Stderr, "Serving WebSocket at ws://%s/viewer\n", lst.Addr())
	g := taskgroup.New(nil)
	g.Go(func() error {
		if err := srv.Serve(lst); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		up.Close()
		return srv.Shutdown(context.Background())
	})
	lerr := peers.Loop(ctx, up, echoAll(newViewer))
	if errors.Is(lerr, context.Canceled) {
		lerr = nil
	}
	cancel()
	return errors.Join(lerr, g.Wait())
}

// echoAll wraps newViewer so that methods without a handler echo their
// parameters.
func echoAll(newViewer func() *peers.Viewer) func() *peers.Viewer {
	return func() *peers.Viewer { return newViewer().HandleDefault(handler.Echo) }
}

func loadParams() (frame.Params, error) {
	if connFlags.Config == "" {
		return frame.Params{}, nil
	}
	return frame.LoadParams(connFlags.Config)
}

// parseParams parses an optional JSON parameter argument.
func parseParams(args []string) (any, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		if !json.Valid([]byte(args[0])) {
			return nil, fmt.Errorf("invalid JSON parameters %q", args[0])
		}
		return json.RawMessage(args[0]), nil
	default:
		return nil, fmt.Errorf("extra arguments: %q", args[1:])
	}
}
