package http1

import (
	"bufio"
	"strconv"
)

// WriteContinue writes an interim 100 Continue response.
func WriteContinue(bw *bufio.Writer) error {
	return WriteInterim(bw, 100, nil)
}

// WriteInterim writes a 1xx response head with the given fields.
func WriteInterim(bw *bufio.Writer, status int, hdr []Field) error {
	if status < 100 || status > 199 {
		return fieldErr("status", strconv.Itoa(status))
	}
	bw.WriteString("HTTP/1.1 ")
	bw.WriteString(strconv.Itoa(status))
	bw.WriteByte(' ')
	bw.WriteString(defaultReason(status))
	bw.WriteString("\r\n")
	for _, f := range hdr {
		if !ValidField(f) {
			return fieldErr(f.Name, f.Value)
		}
		writeField(bw, f.Name, f.Value)
	}
	_, err := bw.WriteString("\r\n")
	return err
}
