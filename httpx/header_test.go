package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeader_CaseInsensitiveOrdered(t *testing.T) {
	var h Header
	h.Add("x-foo", "a")
	h.Add("Content-Type", "text/plain")
	h.Add("X-Foo", "b")
	assert.Equal(t, "a", h.Get("X-FOO"))
	assert.Equal(t, []string{"a", "b"}, h.Values("x-foo"))
	assert.True(t, h.Has("content-type"))

	h.Set("X-FOO", "c")
	assert.Equal(t, Header{{Name: "x-foo", Value: "c"}, {Name: "Content-Type", Value: "text/plain"}}, h)

	h.Set("X-Bar", "d")
	assert.Equal(t, "d", h.Get("x-bar"))
	assert.Len(t, h, 3)

	h.Del("x-foo")
	assert.Equal(t, "", h.Get("X-Foo"))
	assert.Equal(t, Header{{Name: "Content-Type", Value: "text/plain"}, {Name: "X-Bar", Value: "d"}}, h)
}

func TestHeader_CloneIsIndependent(t *testing.T) {
	h := Header{{Name: "A", Value: "1"}}
	c := h.Clone()
	c.Set("A", "2")
	c.Add("B", "3")
	assert.Equal(t, "1", h.Get("A"))
	assert.Len(t, h, 1)
	assert.Nil(t, Header(nil).Clone())
}

func TestHeaderCarrier(t *testing.T) {
	var h Header
	c := headerCarrier{h: &h}
	c.Set("traceparent", "00-abc")
	c.Set("Traceparent", "00-def")
	assert.Equal(t, "00-def", c.Get("TRACEPARENT"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}
