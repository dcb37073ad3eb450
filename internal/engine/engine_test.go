package engine

import (
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/msapi-manager/internal/manifest"
	"github.com/nabbar/msapi-manager/internal/proto"
	"github.com/nabbar/msapi-manager/internal/supervisor"
	"github.com/nabbar/msapi-manager/internal/transport"
	"github.com/nabbar/msapi-manager/internal/wire"
)

func TestEngine(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "engine suite")
}

// readFrame reads one full object-protocol frame off a raw net.Conn.
func readFrame(c net.Conn) proto.Message {
	fr := wire.NewFrameReader(c, 0, 0)
	f, err := fr.Next()
	Expect(err).NotTo(HaveOccurred())
	m, err := proto.DecodePayload(f[wire.HeaderSize:], nil)
	Expect(err).NotTo(HaveOccurred())
	return m
}

func bindTestApp(e *Engine, port int, appType string, conn *transport.Connection) {
	e.createdAppToPortLock.Lock()
	e.created[port] = &CreatedApp{Type: appType, Port: port, Conn: conn}
	e.createdAppToPortLock.Unlock()
}

// dispatch stands in for the OutboundClient read loop that production code
// runs per connection: it decodes whatever the fake worker writes and hands
// it to the engine, until the pipe closes.
func dispatch(e *Engine, port int, conn *transport.Connection) {
	for {
		f, err := conn.Reader.Next()
		if err != nil {
			return
		}
		m, err := proto.DecodePayload(f[wire.HeaderSize:], conn.Schema())
		if err != nil {
			return
		}
		e.HandleWorkerMessage(port, m)
	}
}

var _ = Describe("Engine", func() {
	It("rejects creating an app of an unknown type", func() {
		e := New(nil, supervisor.New(""), nil, manifest.Catalog{})
		_, err := e.CreateApp("does-not-exist")
		Expect(err).To(HaveOccurred())
	})

	It("GetParameters delivers the worker's reply to the HTTP caller", func() {
		e := New(nil, supervisor.New(""), nil, manifest.Catalog{})
		server, worker := net.Pipe()
		conn := transport.WrapConnection(1, server, transport.DefaultConfig())
		bindTestApp(e, 9100, "demo", conn)
		go dispatch(e, 9100, conn)

		go func() {
			m := readFrame(worker)
			Expect(m.Action).To(Equal(proto.ActionParametersRequest))
			frame, _ := proto.BuildFrame(proto.ParametersMessage(proto.ParameterSet{
				1: proto.StringValue("value"),
			}))
			_, _ = worker.Write(frame)
		}()

		ps, err := e.GetParameters(9100)
		Expect(err).NotTo(HaveOccurred())
		s, _ := ps[1].String()
		Expect(s).To(Equal("value"))
	})

	It("coalesces concurrent GetParameters callers onto one worker RPC", func() {
		e := New(nil, supervisor.New(""), nil, manifest.Catalog{})
		server, worker := net.Pipe()
		defer worker.Close()
		conn := transport.WrapConnection(1, server, transport.DefaultConfig())
		bindTestApp(e, 9200, "demo", conn)
		go dispatch(e, 9200, conn)

		requestCount := make(chan struct{}, 8)
		go func() {
			m := readFrame(worker)
			Expect(m.Action).To(Equal(proto.ActionParametersRequest))
			requestCount <- struct{}{}
			time.Sleep(30 * time.Millisecond)
			frame, _ := proto.BuildFrame(proto.ParametersMessage(proto.ParameterSet{
				1: proto.StringValue("value"),
			}))
			_, _ = worker.Write(frame)
		}()

		results := make(chan proto.ParameterSet, 3)
		for i := 0; i < 3; i++ {
			go func() {
				ps, err := e.GetParameters(9200)
				Expect(err).NotTo(HaveOccurred())
				results <- ps
			}()
		}

		var got proto.ParameterSet
		for i := 0; i < 3; i++ {
			Eventually(results, time.Second).Should(Receive(&got))
			s, _ := got[1].String()
			Expect(s).To(Equal("value"))
		}
		Expect(requestCount).To(HaveLen(1))
	})

	It("Pause drains pending requests with ErrManagerPaused", func() {
		e := New(nil, supervisor.New(""), nil, manifest.Catalog{})
		server, worker := net.Pipe()
		defer worker.Close()
		conn := transport.WrapConnection(1, server, transport.DefaultConfig())
		bindTestApp(e, 9300, "demo", conn)

		go func() { _ = readFrame(worker) }()

		errs := make(chan error, 1)
		go func() { _, err := e.GetParameters(9300); errs <- err }()
		time.Sleep(20 * time.Millisecond)

		e.Pause()
		Eventually(errs, time.Second).Should(Receive(MatchError(ErrManagerPaused)))
	})

	It("resolves PauseApp from the worker's next parameters frame", func() {
		e := New(nil, supervisor.New(""), nil, manifest.Catalog{})
		server, worker := net.Pipe()
		defer worker.Close()
		conn := transport.WrapConnection(1, server, transport.DefaultConfig())
		bindTestApp(e, 9400, "demo", conn)
		go dispatch(e, 9400, conn)

		go func() {
			m := readFrame(worker)
			Expect(m.Action).To(Equal(proto.ActionPause))
			m = readFrame(worker)
			Expect(m.Action).To(Equal(proto.ActionParametersRequest))
			frame, _ := proto.BuildFrame(proto.ParametersMessage(proto.ParameterSet{
				proto.ParamWorkerState: proto.Uint8Value(uint8(proto.WorkerStatePaused)),
			}))
			_, _ = worker.Write(frame)
		}()

		ok, err := e.PauseApp(9400)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("rejects Run while a Pause is in flight on the same port", func() {
		e := New(nil, supervisor.New(""), nil, manifest.Catalog{})
		server, worker := net.Pipe()
		defer worker.Close()
		conn := transport.WrapConnection(1, server, transport.DefaultConfig())
		bindTestApp(e, 9500, "demo", conn)

		go func() { _ = readFrame(worker) }()
		go func() { _, _ = e.PauseApp(9500) }()
		time.Sleep(20 * time.Millisecond)

		_, err := e.RunApp(9500)
		Expect(err).To(HaveOccurred())
	})

	It("answers GetMetadata for every instance of a type and caches it", func() {
		e := New(nil, supervisor.New(""), nil, manifest.Catalog{})
		server, worker := net.Pipe()
		defer worker.Close()
		conn := transport.WrapConnection(1, server, transport.DefaultConfig())
		bindTestApp(e, 9600, "demo", conn)
		go dispatch(e, 9600, conn)

		go func() {
			m := readFrame(worker)
			Expect(m.Action).To(Equal(proto.ActionMetadataRequest))
			frame, _ := proto.BuildFrame(proto.MetadataMessage(`{"mutable":[],"const":[]}`))
			_, _ = worker.Write(frame)
		}()

		md, err := e.GetMetadata("demo")
		Expect(err).NotTo(HaveOccurred())
		Expect(md).To(Equal(`{"mutable":[],"const":[]}`))

		// second call must not trigger another worker RPC
		md2, err := e.GetMetadata("demo")
		Expect(err).NotTo(HaveOccurred())
		Expect(md2).To(Equal(md))
	})

	It("rejects GetMetadata for a type with no created instance", func() {
		e := New(nil, supervisor.New(""), nil, manifest.Catalog{})
		_, err := e.GetMetadata("nonexistent")
		Expect(err).To(HaveOccurred())
	})
})
