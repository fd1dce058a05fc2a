package http1

import (
	"bufio"
	"errors"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Field is one header line. Order and duplicates are preserved.
type Field struct {
	Name  string
	Value string
}

// Limits bounds the memory a single message may consume while parsing.
type Limits struct {
	// MaxLineBytes caps the start line and every individual header line.
	MaxLineBytes int
	// MaxHeaderBytes caps the whole header block; trailers share the budget.
	MaxHeaderBytes int
	// MaxHeaderCount caps the number of header (and trailer) fields.
	MaxHeaderCount int
	// MaxBodyBytes caps the decoded body. Zero or negative means no body is
	// accepted at all.
	MaxBodyBytes int64
}

const (
	DefaultMaxLineBytes   = 8 << 10
	DefaultMaxHeaderBytes = 64 << 10
	DefaultMaxHeaderCount = 100
	maxChunkLineBytes     = 1 << 10
	maxChunkSizeDigits    = 15
)

func (l Limits) withDefaults() Limits {
	if l.MaxLineBytes <= 0 {
		l.MaxLineBytes = DefaultMaxLineBytes
	}
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if l.MaxHeaderCount <= 0 {
		l.MaxHeaderCount = DefaultMaxHeaderCount
	}
	return l
}

// Get returns the first value for name (ASCII case-insensitive).
func Get(fields []Field, name string) string {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for name in wire order.
func Values(fields []Field, name string) []string {
	var vv []string
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			vv = append(vv, f.Value)
		}
	}
	return vv
}

// headerReader reads header and trailer blocks against one shared budget.
type headerReader struct {
	br    *bufio.Reader
	lim   Limits
	used  int
	count int
}

// readFields reads field lines until the empty line ending the block.
func (hr *headerReader) readFields() ([]Field, error) {
	var fields []Field
	for {
		remain := hr.lim.MaxHeaderBytes - hr.used
		if remain <= 0 {
			return nil, protoErr(HeaderTooLarge, "header block exceeds %d bytes", hr.lim.MaxHeaderBytes)
		}
		limit := hr.lim.MaxLineBytes
		if remain < limit {
			limit = remain
		}
		line, n, err := readLine(hr.br, limit)
		hr.used += n
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				return nil, protoErr(HeaderTooLarge, "header line exceeds %d bytes", limit)
			}
			return nil, eofAsProtocol(err, "in header block")
		}
		if hr.used > hr.lim.MaxHeaderBytes {
			return nil, protoErr(HeaderTooLarge, "header block exceeds %d bytes", hr.lim.MaxHeaderBytes)
		}
		if line == "" {
			return fields, nil
		}
		if hr.count >= hr.lim.MaxHeaderCount {
			return nil, protoErr(HeaderTooLarge, "more than %d header fields", hr.lim.MaxHeaderCount)
		}
		f, err := parseField(line)
		if err != nil {
			return nil, err
		}
		hr.count++
		fields = append(fields, f)
	}
}

func parseField(line string) (Field, error) {
	if line[0] == ' ' || line[0] == '\t' {
		return Field{}, protoErr(MalformedHeader, "obsolete line folding")
	}
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return Field{}, protoErr(MalformedHeader, "missing colon")
	}
	name := line[:i]
	if !httpguts.ValidHeaderFieldName(name) {
		return Field{}, protoErr(MalformedHeader, "invalid field name %q", name)
	}
	value := strings.Trim(line[i+1:], " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return Field{}, protoErr(MalformedHeader, "invalid value for %s", name)
	}
	return Field{Name: name, Value: value}, nil
}

// ValidField reports whether f may be written on the wire.
func ValidField(f Field) bool {
	return httpguts.ValidHeaderFieldName(f.Name) && httpguts.ValidHeaderFieldValue(f.Value)
}

// ValidMethod reports whether m is a syntactically valid method token.
func ValidMethod(m string) bool {
	return httpguts.ValidHeaderFieldName(m)
}

// hasToken reports whether any comma-separated value of name contains token.
func hasToken(fields []Field, name, token string) bool {
	return httpguts.HeaderValuesContainsToken(Values(fields, name), token)
}

// lastCoding returns the final transfer coding listed in Transfer-Encoding.
func lastCoding(fields []Field) (string, bool) {
	vv := Values(fields, "Transfer-Encoding")
	if len(vv) == 0 {
		return "", false
	}
	last := ""
	for _, v := range vv {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				last = c
			}
		}
	}
	return strings.ToLower(last), true
}
