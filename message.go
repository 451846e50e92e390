// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import "fmt"

// A Message is one unit of cross-document messaging.
//
// For a message received by the host, Window identifies the sending frame's
// content window and Origin is the sender's origin. For a message sent by the
// host, Window identifies the target content window and Origin is the target
// origin, or "*" for any.
//
// Data is either structured (for example a Command, *Reply, or a map) or a
// string of JSON text. Channels that encode messages for transmission decide
// which form to deliver.
type Message struct {
	Window string
	Origin string
	Data   any
}

// String returns a human-friendly rendering of the message.
func (m *Message) String() string {
	return fmt.Sprintf("Message(window=%s, origin=%s, %s)", m.Window, m.Origin, abbrev(m.Data))
}

// AnyOrigin is the wildcard target origin.
const AnyOrigin = "*"

// A Channel is a reliable ordered stream of messages between a host page and
// the frames embedded in it.
//
// The methods of an implementation must be safe for concurrent use by one
// sender and one receiver.
type Channel interface {
	// Send the message to the frame it addresses.
	Send(*Message) error

	// Receive the next available message from any frame.
	Recv() (*Message, error)

	// Close the channel, causing any pending send or receive operations to
	// terminate and report an error. After a channel is closed, all further
	// operations on it must report an error.
	Close() error
}

// A MessageLogger logs a message exchanged with an embedded frame.
type MessageLogger func(msg MessageInfo)

// A MessageInfo combines a message and a flag indicating whether the message
// was sent or received.
type MessageInfo struct {
	*Message      // the message being logged
	Sent     bool // whether the message was sent (true) or received (false)
}

func (m MessageInfo) dir() string {
	if m.Sent {
		return "send"
	}
	return "recv"
}

func (m MessageInfo) String() string {
	return fmt.Sprintf("%v %v", m.dir(), m.Message)
}
