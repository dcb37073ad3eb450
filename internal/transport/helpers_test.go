package transport_test

import (
	"bufio"
	"io"

	"github.com/nabbar/msapi-manager/internal/transport"
)

func serverAddr(s *transport.Server) string {
	return s.Addr().String()
}

func newBufReader(r io.Reader) *bufio.Reader {
	return bufio.NewReader(r)
}
