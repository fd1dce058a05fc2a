package httpx_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"dqx0.com/go/rpcwire/httpx"
)

// ExampleHeader shows ordered, case-insensitive header operations.
func ExampleHeader() {
	var h httpx.Header
	h.Add("X-Foo", "a")
	h.Add("x-foo", "b")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Println(h.Get("X-FOO"))
	fmt.Println(len(h.Values("X-Foo")))
	h.Del("X-Foo")
	fmt.Println(h.Has("x-foo"), len(h))
	// Output:
	// a
	// 2
	// false 1
}

func ExampleParseURL() {
	u, err := httpx.ParseURL("https://user@[::1]:8443/rpc?id=7#frag")
	if err != nil {
		panic(err)
	}
	fmt.Println(u.Scheme, u.Host, u.Port)
	fmt.Println(u.RequestURI())
	fmt.Println(u.HostHeader())

	_, err = httpx.ParseURL("ftp://example.com/")
	fmt.Println(errors.Is(err, httpx.ErrInvalidScheme))
	// Output:
	// https ::1 8443
	// /rpc?id=7
	// [::1]:8443
	// true
}

func ExampleURL_Resolve() {
	base, _ := httpx.ParseURL("http://example.com/a/b?q=1")
	for _, ref := range []string{"c", "../d", "/e?x", "//other.test/f"} {
		u, _ := base.Resolve(ref)
		fmt.Println(u)
	}
	// Output:
	// http://example.com/a/c
	// http://example.com/d
	// http://example.com/e?x
	// http://other.test/f
}

func ExampleClient_Go() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"result":"0x1"}`)
	}))
	defer srv.Close()

	c := httpx.New(httpx.Options{})
	defer c.Close()
	call := c.Go(context.Background(), httpx.NewRequest("POST", srv.URL+"/rpc", []byte(`{"id":1}`)), nil)
	res, err := call.Wait()
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Status(), string(res.Body))
	// Output:
	// 200 OK {"result":"0x1"}
}
