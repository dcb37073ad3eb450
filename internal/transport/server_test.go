package transport_test

import (
	"io"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/msapi-manager/internal/proto"
	"github.com/nabbar/msapi-manager/internal/transport"
)

var _ = Describe("Server", func() {
	var srv *transport.Server
	var addr string

	AfterEach(func() {
		if srv != nil {
			_ = srv.Stop()
		}
	})

	It("dispatches a binary object frame to onObject", func() {
		received := make(chan proto.Message, 1)
		srv = transport.New(nil, transport.DefaultConfig(), nil, func(c *transport.Connection, m proto.Message) {
			received <- m
		})
		Expect(srv.Listen("127.0.0.1:0")).To(Succeed())
		go func() { _ = srv.Serve() }()

		conn, err := net.Dial("tcp", serverAddr(srv))
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		frame, err := proto.BuildFrame(proto.HelloMessage())
		Expect(err).NotTo(HaveOccurred())
		_, err = conn.Write(frame)
		Expect(err).NotTo(HaveOccurred())

		Eventually(received, time.Second).Should(Receive(WithTransform(func(m proto.Message) proto.ActionCode {
			return m.Action
		}, Equal(proto.ActionHello))))
	})

	It("falls through to the HTTP handler when the cipher is not the object protocol", func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("pong"))
		})

		srv = transport.New(nil, transport.DefaultConfig(), mux, nil)
		Expect(srv.Listen("127.0.0.1:0")).To(Succeed())
		go func() { _ = srv.Serve() }()

		conn, err := net.Dial("tcp", serverAddr(srv))
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		_, err = conn.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		resp, err := http.ReadResponse(newBufReader(conn), nil)
		Expect(err).NotTo(HaveOccurred())
		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(Equal("pong"))
	})
})
