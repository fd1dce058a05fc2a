package httpx

import "strconv"

// Response is a fully received response.
type Response struct {
	StatusCode int
	Reason     string
	Proto      string
	Header     Header
	Trailer    Header
	Body       []byte
	// URL is the final URL after any redirects.
	URL *URL
	// ConnID identifies the connection that carried the response; two
	// responses with equal ConnID shared a socket.
	ConnID uint64
	// Reused is true when the connection came from the idle pool.
	Reused bool
}

// Status is "code reason", e.g. "200 OK".
func (r *Response) Status() string {
	return strconv.Itoa(r.StatusCode) + " " + r.Reason
}
