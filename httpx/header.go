package httpx

import (
	"strings"

	"dqx0.com/go/rpcwire/httpx/internal/http1"
)

// HeaderField is one header line.
type HeaderField = http1.Field

// Header is an ordered list of fields. Names compare ASCII case-insensitively
// and duplicates are kept in insertion order, exactly as sent or received.
type Header []HeaderField

// Get returns the first value for name.
func (h Header) Get(name string) string { return http1.Get(h, name) }

// Values returns all values for name in order.
func (h Header) Values(name string) []string { return http1.Values(h, name) }

// Has reports whether name is present.
func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Add appends a field.
func (h *Header) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// Set replaces every field named name with a single field, kept at the
// position of the first occurrence.
func (h *Header) Set(name, value string) {
	for i, f := range *h {
		if strings.EqualFold(f.Name, name) {
			(*h)[i].Value = value
			*h = append((*h)[:i+1], deleteName((*h)[i+1:], name)...)
			return
		}
	}
	h.Add(name, value)
}

// Del removes every field named name.
func (h *Header) Del(name string) {
	*h = deleteName(*h, name)
}

func deleteName(h Header, name string) Header {
	out := h[:0]
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a copy that shares no storage with h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	return append(Header(nil), h...)
}

// headerCarrier lets a propagation.TextMapPropagator write into a Header.
type headerCarrier struct{ h *Header }

func (c headerCarrier) Get(key string) string { return c.h.Get(key) }
func (c headerCarrier) Set(key, value string) { c.h.Set(key, value) }

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.h))
	for _, f := range *c.h {
		keys = append(keys, f.Name)
	}
	return keys
}
