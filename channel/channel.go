// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package channel provides implementations of the flatembed.Channel interface.
package channel

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/creachadair/flatembed"
)

// Direct constructs a connected pair of in-memory channels that pass messages
// directly without encoding them. Messages sent to A are received by B and
// vice versa.
func Direct() (A, B flatembed.Channel) {
	a2b := make(chan *flatembed.Message)
	b2a := make(chan *flatembed.Message)
	A = direct{a2b: a2b, b2a: b2a}
	B = direct{a2b: b2a, b2a: a2b}
	return
}

type direct struct {
	a2b chan<- *flatembed.Message
	b2a <-chan *flatembed.Message
}

// Send implements a method of the [flatembed.Channel] interface.
func (d direct) Send(msg *flatembed.Message) (err error) {
	defer safeClose(&err)
	d.a2b <- msg
	return nil
}

// Recv implements a method of the [flatembed.Channel] interface.
func (d direct) Recv() (*flatembed.Message, error) {
	msg, ok := <-d.b2a
	if !ok {
		return nil, net.ErrClosed
	}
	return msg, nil
}

// Close implements a method of the [flatembed.Channel] interface.
func (d direct) Close() (err error) {
	defer safeClose(&err)
	close(d.a2b)
	return nil
}

func safeClose(err *error) {
	if x := recover(); x != nil && *err == nil {
		*err = net.ErrClosed
	}
}

// IO constructs a channel that receives from r and sends to wc. Messages are
// encoded as newline-delimited JSON objects:
//
//	{"window":"<id>","origin":"<origin>","data":<payload>}
//
// A payload sent as a Go string is encoded as a JSON string, so that the
// receiver sees a string-encoded message. Received payloads have type
// [json.RawMessage].
func IO(r io.Reader, wc io.WriteCloser) IOChannel {
	// N.B. The bufio package will reuse existing buffers if possible.
	return IOChannel{r: bufio.NewReader(r), w: bufio.NewWriter(wc), c: wc}
}

// An IOChannel sends and receives messages on a reader and a writer.
type IOChannel struct {
	r *bufio.Reader
	w *bufio.Writer
	c io.Closer
}

// Send implements a method of the [flatembed.Channel] interface.
func (c IOChannel) Send(msg *flatembed.Message) error {
	data, err := Marshal(msg)
	if err != nil {
		return err
	}
	c.w.Write(data)
	c.w.WriteByte('\n')
	return c.w.Flush()
}

// Recv implements a method of the [flatembed.Channel] interface.
func (c IOChannel) Recv() (*flatembed.Message, error) {
	for {
		line, err := c.r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) != 0 {
			return Unmarshal(line)
		} else if err != nil {
			return nil, err
		}
	}
}

// Close implements a method of the [flatembed.Channel] interface.
func (c IOChannel) Close() error { return c.c.Close() }

// wireMessage is the encoded form of a flatembed.Message.
type wireMessage struct {
	Window string          `json:"window,omitempty"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// Marshal encodes msg as a single-line JSON object.
func Marshal(msg *flatembed.Message) ([]byte, error) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("encode message data: %w", err)
	}
	return json.Marshal(wireMessage{Window: msg.Window, Origin: msg.Origin, Data: data})
}

// Unmarshal decodes a message encoded by Marshal. The Data field of the
// result has type json.RawMessage.
func Unmarshal(data []byte) (*flatembed.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &flatembed.Message{Window: w.Window, Origin: w.Origin, Data: w.Data}, nil
}
