package wiretest

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dqx0.com/go/rpcwire/httpx/internal/http1"
)

func TestServer_RepliesAndRecords(t *testing.T) {
	s := Start(t, func(w *Writer, r *Request) {
		w.Reply(200, "pong:"+string(r.Body), http1.Field{Name: "X-Path", Value: r.Target})
	})

	c, err := net.Dial("tcp", s.Addr)
	require.NoError(t, err)
	defer c.Close()
	bw := bufio.NewWriter(c)
	br := bufio.NewReader(c)
	for i := 0; i < 2; i++ {
		require.NoError(t, http1.WriteRequestHead(bw, http1.RequestHead{Method: "POST", Target: "/rpc", Host: s.Addr, ContentLength: 4}))
		_, _ = bw.WriteString("ping")
		require.NoError(t, bw.Flush())

		res, err := http1.ReadResponse(br, "POST", http1.Limits{MaxBodyBytes: 1 << 10})
		require.NoError(t, err)
		assert.Equal(t, 200, res.StatusCode)
		assert.Equal(t, "pong:ping", string(res.Body))
		assert.Equal(t, "/rpc", http1.Get(res.Header, "X-Path"))
		assert.True(t, res.KeepAlive)
	}

	assert.Equal(t, 1, s.Accepted())
	reqs := s.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 1, reqs[1].Conn)
	assert.Equal(t, "keep-alive", reqs[0].Get("Connection"))
}

func TestServer_CloseAfterReply(t *testing.T) {
	s := Start(t, func(w *Writer, r *Request) {
		w.Close()
		w.Reply(200, "bye")
	})
	c, err := net.Dial("tcp", s.Addr)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)
	res, err := http1.ReadResponse(bufio.NewReader(c), "GET", http1.Limits{MaxBodyBytes: 1 << 10})
	require.NoError(t, err)
	assert.Equal(t, "bye", string(res.Body))
	assert.False(t, res.KeepAlive)
}
