package httpx

import (
	"net"
	"net/netip"
	"path"
	"strconv"
	"strings"
)

// URL is a parsed absolute http or https URL. Textual components are kept in
// their raw (percent-encoded) form.
type URL struct {
	Scheme string
	User   *Userinfo
	// Host is lowercased ASCII; IPv6 literals are stored without brackets.
	Host string
	// Port is always set, to the default for Scheme when not explicit.
	Port     int
	Path     string
	RawQuery string
	Fragment string
	// ForceQuery records a trailing '?' with an empty query.
	ForceQuery bool
	// HasFragment records a '#', even when Fragment is empty.
	HasFragment bool
}

// Userinfo is the raw "user[:password]" part of a URL.
type Userinfo struct {
	Username    string
	Password    string
	HasPassword bool
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// ParseURL parses an absolute http(s) URL:
//
//	scheme "://" [userinfo "@"] host [":" port] [path] ["?" query] ["#" fragment]
//
// Errors are *URLError. ParseURL only slices its input and never allocates
// more than a small multiple of len(text).
func ParseURL(text string) (*URL, error) {
	u, err := parseURL(text)
	if err != nil {
		return nil, &URLError{Input: text, Err: err}
	}
	return u, nil
}

func parseURL(text string) (*URL, error) {
	s := strings.TrimSpace(text)
	i := strings.Index(s, "://")
	if i <= 0 {
		return nil, ErrInvalidScheme
	}
	scheme := s[:i]
	if !validScheme(scheme) {
		return nil, ErrInvalidScheme
	}
	u := &URL{Scheme: strings.ToLower(scheme)}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidScheme
	}
	rest := s[i+3:]

	authority, tail := rest, ""
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		authority, tail = rest[:j], rest[j:]
	}
	if k := strings.LastIndexByte(authority, '@'); k >= 0 {
		ui, err := parseUserinfo(authority[:k])
		if err != nil {
			return nil, err
		}
		u.User = ui
		authority = authority[k+1:]
	}
	if err := u.parseHostPort(authority); err != nil {
		return nil, err
	}

	if j := strings.IndexByte(tail, '#'); j >= 0 {
		u.Fragment, u.HasFragment = tail[j+1:], true
		tail = tail[:j]
	}
	if j := strings.IndexByte(tail, '?'); j >= 0 {
		u.RawQuery = tail[j+1:]
		u.ForceQuery = u.RawQuery == ""
		tail = tail[:j]
	}
	u.Path = tail
	for _, part := range []string{u.Path, u.RawQuery, u.Fragment} {
		if err := checkComponent(part); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func validScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

func parseUserinfo(s string) (*Userinfo, error) {
	if err := checkComponent(s); err != nil {
		return nil, err
	}
	ui := &Userinfo{Username: s}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		ui.Username, ui.Password, ui.HasPassword = s[:i], s[i+1:], true
	}
	return ui, nil
}

func (u *URL) parseHostPort(hp string) error {
	host, port, hasPort := hp, "", false
	if strings.HasPrefix(hp, "[") {
		end := strings.IndexByte(hp, ']')
		if end < 0 {
			return ErrInvalidHost
		}
		host = hp[1:end]
		switch after := hp[end+1:]; {
		case after == "":
		case after[0] == ':':
			port, hasPort = after[1:], true
		default:
			return ErrInvalidHost
		}
		if host == "" {
			return ErrEmptyHost
		}
		if err := checkHostBytes(host); err != nil {
			return err
		}
		addr, err := netip.ParseAddr(host)
		if err != nil || !addr.Is6() || addr.Zone() != "" {
			return ErrInvalidHost
		}
	} else {
		if i := strings.LastIndexByte(hp, ':'); i >= 0 {
			host, port, hasPort = hp[:i], hp[i+1:], true
		}
		if host == "" {
			return ErrEmptyHost
		}
		if err := checkHostBytes(host); err != nil {
			return err
		}
		for i := 0; i < len(host); i++ {
			if !hostByte(host[i]) {
				return ErrInvalidHost
			}
		}
	}
	u.Host = strings.ToLower(host)
	u.Port = defaultPort(u.Scheme)
	if hasPort {
		n, ok := parsePort(port)
		if !ok {
			return ErrInvalidPort
		}
		u.Port = n
	}
	return nil
}

// checkHostBytes reports non-ASCII and percent-encoding problems, which take
// precedence over the generic invalid-host error.
func checkHostBytes(host string) error {
	for i := 0; i < len(host); i++ {
		if host[i] >= 0x80 {
			return ErrNonASCIIHost
		}
	}
	if err := checkPercent(host); err != nil {
		return err
	}
	return nil
}

func hostByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=", c) >= 0
}

func parsePort(s string) (int, bool) {
	if s == "" || len(s) > 5 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, n >= 1 && n <= 65535
}

// checkComponent validates a path, query, fragment or userinfo.
func checkComponent(s string) error {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c <= ' ' || c >= 0x7f {
			return ErrInvalidCharacter
		}
	}
	return checkPercent(s)
}

func checkPercent(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return ErrMalformedPercentEncoding
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

// Unescape decodes percent-encoding. The result is never longer than s.
func Unescape(s string) (string, error) {
	if err := checkPercent(s); err != nil {
		return "", err
	}
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			b = append(b, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		b = append(b, s[i])
	}
	return string(b), nil
}

// String reassembles the URL. The default port is omitted, so
// ParseURL(u.String()) yields a URL equal to u.
func (u *URL) String() string {
	var b strings.Builder
	b.Grow(len(u.Scheme) + len(u.Host) + len(u.Path) + len(u.RawQuery) + len(u.Fragment) + 16)
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(u.HostHeader())
	b.WriteString(u.Path)
	if u.RawQuery != "" || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.HasFragment {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}

func (ui *Userinfo) String() string {
	if ui.HasPassword {
		return ui.Username + ":" + ui.Password
	}
	return ui.Username
}

// HostHeader is the Host header value: bracketed for IPv6, with the port
// only when it is not the scheme default.
func (u *URL) HostHeader() string {
	h := u.Host
	if strings.IndexByte(h, ':') >= 0 {
		h = "[" + h + "]"
	}
	if u.Port != 0 && u.Port != defaultPort(u.Scheme) {
		h += ":" + strconv.Itoa(u.Port)
	}
	return h
}

// Hostport is the dial address.
func (u *URL) Hostport() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// RequestURI is the origin-form request target.
func (u *URL) RequestURI() string {
	p := u.Path
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" || u.ForceQuery {
		p += "?" + u.RawQuery
	}
	return p
}

// absolute is the absolute-form target used through an HTTP proxy. Userinfo
// and fragment are never sent.
func (u *URL) absolute() string {
	return u.Scheme + "://" + u.HostHeader() + u.RequestURI()
}

// Resolve parses ref (absolute, scheme-relative, absolute-path, query-only
// or relative-path) against u. The fragment of u carries over when ref has
// none.
func (u *URL) Resolve(ref string) (*URL, error) {
	ref = strings.TrimSpace(ref)
	var abs string
	switch {
	case hasScheme(ref):
		abs = ref
	case strings.HasPrefix(ref, "//"):
		abs = u.Scheme + ":" + ref
	case strings.HasPrefix(ref, "/"):
		abs = u.origin() + ref
	case ref != "" && ref[0] == '?':
		abs = u.origin() + u.Path + ref
	case ref == "" || ref[0] == '#':
		abs = u.origin() + u.Path
		if u.RawQuery != "" || u.ForceQuery {
			abs += "?" + u.RawQuery
		}
		abs += ref
	default:
		dir := "/"
		if i := strings.LastIndexByte(u.Path, '/'); i >= 0 {
			dir = u.Path[:i+1]
		}
		abs = u.origin() + dir + ref
	}
	next, err := ParseURL(abs)
	if err != nil {
		return nil, err
	}
	next.Path = cleanPath(next.Path)
	if !next.HasFragment && u.HasFragment {
		next.Fragment, next.HasFragment = u.Fragment, true
	}
	return next, nil
}

// hasScheme reports whether ref opens with "scheme://". A colon after the
// first '/', '?' or '#' belongs to the path, query or fragment.
func hasScheme(ref string) bool {
	i := strings.IndexAny(ref, ":/?#")
	if i <= 0 || ref[i] != ':' {
		return false
	}
	return validScheme(ref[:i]) && strings.HasPrefix(ref[i:], "://")
}

func (u *URL) origin() string {
	s := u.Scheme + "://"
	if u.User != nil {
		s += u.User.String() + "@"
	}
	return s + u.HostHeader()
}

// cleanPath removes dot segments, keeping a trailing slash.
func cleanPath(p string) string {
	if p == "" || !strings.Contains(p, ".") {
		return p
	}
	c := path.Clean(p)
	if c == "." {
		c = "/"
	}
	if strings.HasSuffix(p, "/") || strings.HasSuffix(p, "/.") || strings.HasSuffix(p, "/..") {
		if !strings.HasSuffix(c, "/") {
			c += "/"
		}
	}
	return c
}
