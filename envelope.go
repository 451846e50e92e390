// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package flatembed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Command is the wire format of a method call sent to the viewer.
// There is no call identifier: replies are matched by method name.
type Command struct {
	Method     string `json:"method"`
	Parameters any    `json:"parameters,omitempty"`
}

// Encode constructs the command envelope for a call to method.
func Encode(method string, parameters any) Command {
	return Command{Method: method, Parameters: parameters}
}

// String returns a human-friendly rendering of the command.
func (c Command) String() string {
	return fmt.Sprintf("Command(%s, %s)", c.Method, abbrev(c.Parameters))
}

// An Envelope is a decoded inbound message. Its concrete type is one of
// *Reply, *Event, or Unrecognized.
type Envelope interface {
	isEnvelope()
	String() string
}

// Reply is the wire format of the viewer's answer to a Command.
//
// If Error is non-nil the call failed and Error holds the payload reported by
// the viewer, verbatim. Error takes precedence over Response.
type Reply struct {
	Method   string          `json:"method"`
	Error    json.RawMessage `json:"error,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

func (*Reply) isEnvelope() {}

// Failed reports whether r carries an error.
func (r *Reply) Failed() bool { return r.Error != nil }

// String returns a human-friendly rendering of the reply.
func (r *Reply) String() string {
	if r.Failed() {
		return fmt.Sprintf("Reply(%s, error=%s)", r.Method, abbrev(r.Error))
	}
	return fmt.Sprintf("Reply(%s, %s)", r.Method, abbrev(r.Response))
}

// Event is the wire format of an event pushed by the viewer.
type Event struct {
	Name       string          `json:"event"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

func (*Event) isEnvelope() {}

// String returns a human-friendly rendering of the event.
func (e *Event) String() string { return fmt.Sprintf("Event(%s, %s)", e.Name, abbrev(e.Parameters)) }

// Unrecognized is a well-formed message that is neither a reply nor an event.
type Unrecognized struct {
	Data json.RawMessage
}

func (Unrecognized) isEnvelope() {}

// String returns a human-friendly rendering of the message.
func (u Unrecognized) String() string { return fmt.Sprintf("Unrecognized(%s)", abbrev(u.Data)) }

// ParseError reports message data that is not valid JSON.
type ParseError struct {
	Text string // the offending input
	Err  error
}

func (p *ParseError) Error() string { return fmt.Sprintf("invalid message data: %v", p.Err) }

func (p *ParseError) Unwrap() error { return p.Err }

// Decode decodes an inbound message. The raw value may be already structured
// (a map, a *Reply or *Event, a json.RawMessage holding an object), or a
// string of JSON text in any of the forms string, []byte, or a
// json.RawMessage holding a JSON string.
//
// Decode reports a *ParseError if textual data is not valid JSON. Valid data
// that is neither a reply nor an event is returned as Unrecognized.
func Decode(raw any) (Envelope, error) {
	data, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Unrecognized{Data: data}, nil
	}
	if name := stringField(fields, "method"); name != "" {
		r := &Reply{Method: name, Response: fields["response"]}
		if e, ok := fields["error"]; ok && !isNull(e) {
			r.Error = e
		}
		return r, nil
	}
	if name := stringField(fields, "event"); name != "" {
		return &Event{Name: name, Parameters: fields["parameters"]}, nil
	}
	return Unrecognized{Data: data}, nil
}

// DecodeCommand decodes an outbound command, as received by a viewer.  The
// accepted forms of raw are as for Decode. The Parameters of the result, if
// present, have type json.RawMessage.
func DecodeCommand(raw any) (Command, error) {
	data, err := normalize(raw)
	if err != nil {
		return Command{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Command{}, fmt.Errorf("command is not an object: %w", err)
	}
	name := stringField(fields, "method")
	if name == "" {
		return Command{}, fmt.Errorf("command has no method name")
	}
	cmd := Command{Method: name}
	if p, ok := fields["parameters"]; ok {
		cmd.Parameters = p
	}
	return cmd, nil
}

// normalize converts raw into JSON text.
func normalize(raw any) (json.RawMessage, error) {
	switch v := raw.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case string:
		return parseText([]byte(v))
	case []byte:
		return parseText(v)
	case json.RawMessage:
		if t := bytes.TrimSpace(v); len(t) != 0 && t[0] == '"' {
			var s string
			if err := json.Unmarshal(t, &s); err != nil {
				return nil, &ParseError{Text: string(v), Err: err}
			}
			return parseText([]byte(s))
		}
		return parseText(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode message data: %w", err)
		}
		return data, nil
	}
}

func parseText(text []byte) (json.RawMessage, error) {
	if !json.Valid(text) {
		// Report the position of the syntax error, if possible.
		var x any
		err := json.Unmarshal(text, &x)
		if err == nil {
			err = fmt.Errorf("malformed JSON")
		}
		return nil, &ParseError{Text: string(text), Err: err}
	}
	return json.RawMessage(text), nil
}

// stringField returns the string value of the named field, or "" if the field
// is missing or is not a string.
func stringField(fields map[string]json.RawMessage, name string) string {
	var s string
	if v, ok := fields[name]; ok && json.Unmarshal(v, &s) == nil {
		return s
	}
	return ""
}

func isNull(v json.RawMessage) bool { return string(bytes.TrimSpace(v)) == "null" }

// abbrev renders v for logging, truncated to a reasonable width.
func abbrev(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case json.RawMessage:
		if t == nil {
			return "<nil>"
		}
		s = string(t)
	case []byte:
		s = fmt.Sprintf("[%d bytes]", len(t))
	default:
		data, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(data)
		}
	}
	if len(s) > 48 {
		return s[:48] + "..."
	}
	return s
}
