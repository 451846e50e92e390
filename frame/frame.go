// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package frame models the host document elements that an embedded score
// viewer lives in: containers, the iframes created inside them, and the
// content windows that messages are posted to.
//
// A Document is a minimal element tree. It does not render anything; it exists
// so that a host can resolve a container or iframe reference to the frame that
// carries the viewer, and so that a frame can be detached, at which point its
// content window is no longer available as a message target.
//
//	doc := frame.NewDocument()
//	box := doc.CreateElement("div")
//	box.ID = "score"
//	doc.Append(doc.Body(), box)
//
//	iframe, err := frame.Resolve(box, frame.Params{Score: "56ae21579a127715a02901a6"})
package frame

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/creachadair/mds/value"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound is reported by Query when no element matches a selector.
var ErrNotFound = errors.New("element not found")

// A Window is the content window of an attached iframe. Windows are the
// source and target identities of cross-document messages.
type Window struct {
	ID string
}

// A Document is a tree of elements rooted at a body element. A zero Document
// is not ready for use; call NewDocument.
type Document struct {
	μ    sync.Mutex
	body *Element
}

// NewDocument constructs an empty document with an attached body element.
func NewDocument() *Document {
	d := new(Document)
	d.body = d.CreateElement("body")
	d.body.attached = true
	return d
}

// Body returns the root element of d.
func (d *Document) Body() *Element { return d.body }

// An Element is a node of a Document. Elements are compared by identity.
type Element struct {
	ID  string // the element id attribute, used by selectors
	Tag string // lower-case tag name

	doc      *Document
	attrs    map[string]string
	parent   *Element
	children []*Element
	window   *Window // set for iframes
	attached bool
}

// CreateElement constructs a detached element with the given tag.  An iframe
// element is assigned a fresh content window.
func (d *Document) CreateElement(tag string) *Element {
	el := &Element{Tag: strings.ToLower(tag), doc: d, attrs: make(map[string]string)}
	if el.Tag == "iframe" {
		el.window = &Window{ID: ulid.Make().String()}
	}
	return el
}

// Append adds child as the last child of parent. If child already has a
// parent it is moved.
func (d *Document) Append(parent, child *Element) {
	d.μ.Lock()
	defer d.μ.Unlock()
	if child.parent != nil {
		child.parent.removeChildLocked(child)
	}
	child.parent = parent
	parent.children = append(parent.children, child)
	child.setAttachedLocked(parent.attached)
}

// Remove detaches el (and its subtree) from its parent. Iframes in a detached
// subtree have no content window.
func (d *Document) Remove(el *Element) {
	d.μ.Lock()
	defer d.μ.Unlock()
	if el.parent != nil {
		el.parent.removeChildLocked(el)
		el.parent = nil
	}
	el.setAttachedLocked(false)
}

func (e *Element) removeChildLocked(c *Element) {
	for i, v := range e.children {
		if v == c {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

func (e *Element) setAttachedLocked(ok bool) {
	e.attached = ok
	for _, c := range e.children {
		c.setAttachedLocked(ok)
	}
}

// Query returns the first attached element matching selector, in document
// order. A selector is either "#id" or a bare tag name.
func (d *Document) Query(selector string) (*Element, error) {
	match := func(e *Element) bool { return e.Tag == strings.ToLower(selector) }
	if id, ok := strings.CutPrefix(selector, "#"); ok {
		match = func(e *Element) bool { return e.ID == id }
	} else if selector == "" {
		return nil, fmt.Errorf("empty selector: %w", ErrNotFound)
	}

	d.μ.Lock()
	defer d.μ.Unlock()
	var walk func(*Element) *Element
	walk = func(e *Element) *Element {
		if match(e) {
			return e
		}
		for _, c := range e.children {
			if m := walk(c); m != nil {
				return m
			}
		}
		return nil
	}
	if m := walk(d.body); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("the element %q was not found: %w", selector, ErrNotFound)
}

// Document returns the document e belongs to.
func (e *Element) Document() *Document { return e.doc }

// IsFrame reports whether e is an iframe.
func (e *Element) IsFrame() bool { return e.Tag == "iframe" }

// Attached reports whether e is part of its document.
func (e *Element) Attached() bool {
	e.doc.μ.Lock()
	defer e.doc.μ.Unlock()
	return e.attached
}

// ContentWindow returns the content window of e, or nil if e is not an
// iframe or is not attached to its document.
func (e *Element) ContentWindow() *Window {
	e.doc.μ.Lock()
	defer e.doc.μ.Unlock()
	if !e.attached {
		return nil
	}
	return e.window
}

// Attr returns the value of the named attribute, or "".
func (e *Element) Attr(name string) string {
	e.doc.μ.Lock()
	defer e.doc.μ.Unlock()
	return e.attrs[name]
}

// SetAttr sets the named attribute of e to value.
func (e *Element) SetAttr(name, value string) {
	e.doc.μ.Lock()
	defer e.doc.μ.Unlock()
	e.attrs[name] = value
}

// Children returns a copy of the child list of e.
func (e *Element) Children() []*Element {
	e.doc.μ.Lock()
	defer e.doc.μ.Unlock()
	return append([]*Element(nil), e.children...)
}

// Resolve returns the iframe hosting the viewer for el. If el is an iframe it
// is returned as-is; otherwise a new iframe configured by p is created and
// appended to el.
func Resolve(el *Element, p Params) (*Element, error) {
	if el == nil {
		return nil, errors.New("nil element")
	}
	if el.IsFrame() {
		return el, nil
	}
	return Build(el, p)
}

// Build creates an iframe for the viewer described by p, and appends it to
// container.
func Build(container *Element, p Params) (*Element, error) {
	src, err := URL(p)
	if err != nil {
		return nil, err
	}
	d := container.doc
	f := d.CreateElement("iframe")
	f.attrs["src"] = src
	f.attrs["width"] = value.Cond(p.Width != "", p.Width, "100%")
	f.attrs["height"] = value.Cond(p.Height != "", p.Height, "100%")
	f.attrs["allowfullscreen"] = "true"
	f.attrs["allow"] = "autoplay; midi"
	f.attrs["frameBorder"] = "0"
	if p.Lazy {
		f.attrs["loading"] = "lazy"
	}
	d.Append(container, f)
	return f, nil
}
