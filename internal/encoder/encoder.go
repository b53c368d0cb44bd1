// Package encoder writes rule lists in the JSON layout WebKit's content blocker
// loader expects: two-space indentation, " : " between keys and values, keys in
// declaration order, escaped forward slashes and no trailing newline.
package encoder

import (
	"bytes"
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/bnema/webkit-content-blocker/internal/models"
)

// Wire keys.
const (
	keyTrigger       = "trigger"
	keyAction        = "action"
	keyURLFilter     = "url-filter"
	keyCaseSensitive = "url-filter-is-case-sensitive"
	keyResourceType  = "resource-type"
	keyLoadType      = "load-type"
	keyIfDomain      = "if-domain"
	keyUnlessDomain  = "unless-domain"
	keyActionType    = "action"
	keySelector      = "selector"
)

// Encode returns the canonical JSON document for rules, keeping their order.
// It panics if a rule holds a trigger or an action that was not built by the
// models constructors, since such values never pass validation.
func Encode(rules []models.Rule) []byte {
	w := &writer{}
	w.array(len(rules), func(w *writer, i int) { w.rule(rules[i]) })

	return w.buf.Bytes()
}

// EncodeRule returns the canonical JSON object for a single rule.  Two rules
// with equal encodings are interchangeable.
func EncodeRule(r models.Rule) []byte {
	w := &writer{}
	w.rule(r)

	return w.buf.Bytes()
}

// member is one key of a JSON object along with its value writer.
type member struct {
	key   string
	value func(w *writer)
}

// writer accumulates pretty-printed JSON.
type writer struct {
	buf   bytes.Buffer
	depth int
}

func (w *writer) newline() {
	w.buf.WriteByte('\n')
	for range w.depth {
		w.buf.WriteString("  ")
	}
}

func (w *writer) object(members []member) {
	if len(members) == 0 {
		w.buf.WriteString("{}")

		return
	}

	w.buf.WriteByte('{')
	w.depth++
	for i, m := range members {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.newline()
		w.quote(m.key)
		w.buf.WriteString(" : ")
		m.value(w)
	}
	w.depth--
	w.newline()
	w.buf.WriteByte('}')
}

func (w *writer) array(n int, elem func(w *writer, i int)) {
	if n == 0 {
		w.buf.WriteString("[]")

		return
	}

	w.buf.WriteByte('[')
	w.depth++
	for i := range n {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.newline()
		elem(w, i)
	}
	w.depth--
	w.newline()
	w.buf.WriteByte(']')
}

func (w *writer) bool(v bool) {
	if v {
		w.buf.WriteString("true")
	} else {
		w.buf.WriteString("false")
	}
}

func (w *writer) rule(r models.Rule) {
	w.object([]member{
		{key: keyTrigger, value: func(w *writer) { w.trigger(r.Trigger()) }},
		{key: keyAction, value: func(w *writer) { w.action(r.Action()) }},
	})
}

func (w *writer) trigger(t models.Trigger) {
	if !t.Built() {
		panic(fmt.Errorf("trigger: %w", errors.ErrNoValue))
	}

	members := []member{{
		key:   keyURLFilter,
		value: func(w *writer) { w.quote(t.URLFilter()) },
	}}

	if cs, ok := t.CaseSensitive(); ok {
		members = append(members, member{
			key:   keyCaseSensitive,
			value: func(w *writer) { w.bool(cs) },
		})
	}

	if rts := t.ResourceTypes(); rts.Present() {
		members = append(members, member{key: keyResourceType, value: enumSetWriter(rts)})
	}

	if lts := t.LoadTypes(); lts.Present() {
		members = append(members, member{key: keyLoadType, value: enumSetWriter(lts)})
	}

	if ifd := t.IfDomain(); ifd.Present() {
		members = append(members, member{key: keyIfDomain, value: stringSetWriter(ifd.Values())})
	}

	if ud := t.UnlessDomain(); ud.Present() {
		members = append(members, member{key: keyUnlessDomain, value: stringSetWriter(ud.Values())})
	}

	w.object(members)
}

func (w *writer) action(a models.Action) {
	at := a.Type()
	switch {
	case at == "":
		panic(fmt.Errorf("action: %w", errors.ErrNoValue))
	case !at.Valid():
		panic(fmt.Errorf("action type: %w: %q", errors.ErrBadEnumValue, at))
	}

	members := []member{{
		key:   keyActionType,
		value: func(w *writer) { w.quote(string(at)) },
	}}

	if sel, ok := a.Selector(); ok {
		members = append(members, member{
			key:   keySelector,
			value: func(w *writer) { w.quote(sel) },
		})
	}

	w.object(members)
}

// enum is a closed vocabulary whose values are their own wire literals.
type enum interface {
	~string
	Valid() bool
}

func enumSetWriter[T enum](s models.Set[T]) func(w *writer) {
	vals := s.Values()
	strs := make([]string, 0, len(vals))
	for _, v := range vals {
		if !v.Valid() {
			panic(fmt.Errorf("%T: %w: %q", v, errors.ErrBadEnumValue, string(v)))
		}

		strs = append(strs, string(v))
	}

	return stringSetWriter(strs)
}

func stringSetWriter(vals []string) func(w *writer) {
	return func(w *writer) {
		w.array(len(vals), func(w *writer, i int) { w.quote(vals[i]) })
	}
}
