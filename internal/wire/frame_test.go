package wire_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/msapi-manager/internal/wire"
)

func buildFrame(cipher wire.Cipher, payload []byte) []byte {
	b := make([]byte, wire.HeaderSize+len(payload))
	wire.PutHeader(b, wire.Header{Cipher: cipher, Length: uint32(len(b))})
	copy(b[wire.HeaderSize:], payload)
	return b
}

type byteAtATimeReader struct {
	data []byte
	pos  int
}

func (r *byteAtATimeReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

var _ = Describe("FrameReader", func() {
	It("round-trips a single frame", func() {
		payload := []byte("hello-object-protocol")
		raw := buildFrame(wire.ObjectCipher, payload)

		fr := wire.NewFrameReader(bytes.NewReader(raw), 0, 0)
		h, err := fr.Sniff()
		Expect(err).NotTo(HaveOccurred())
		Expect(h.IsObject()).To(BeTrue())

		frame, err := fr.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(Equal(raw))
	})

	It("dispatches identically whether frames arrive as one buffer or one byte at a time", func() {
		var all bytes.Buffer
		var frames [][]byte
		for i := 0; i < 5; i++ {
			f := buildFrame(wire.ObjectCipher, bytes.Repeat([]byte{byte('a' + i)}, 10+i))
			frames = append(frames, f)
			all.Write(f)
		}

		bulk := wire.NewFrameReader(bytes.NewReader(all.Bytes()), 0, 0)
		var bulkOut [][]byte
		for {
			f, err := bulk.Next()
			if err == io.EOF {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			bulkOut = append(bulkOut, f)
		}
		Expect(bulkOut).To(HaveLen(5))

		trickle := wire.NewFrameReader(&byteAtATimeReader{data: all.Bytes()}, 0, 0)
		var trickleOut [][]byte
		for {
			f, err := trickle.Next()
			if err == io.EOF {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			trickleOut = append(trickleOut, f)
		}

		Expect(trickleOut).To(Equal(bulkOut))
		Expect(trickleOut).To(Equal(frames))
	})

	It("accepts a frame whose declared length equals the ceiling", func() {
		ceiling := 64
		payload := bytes.Repeat([]byte{0x42}, ceiling-wire.HeaderSize)
		raw := buildFrame(wire.ObjectCipher, payload)
		Expect(len(raw)).To(Equal(ceiling))

		fr := wire.NewFrameReader(bytes.NewReader(raw), 0, ceiling)
		frame, err := fr.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(HaveLen(ceiling))
	})

	It("drops a frame whose declared length exceeds the ceiling but keeps framing in sync", func() {
		ceiling := 64
		big := buildFrame(wire.ObjectCipher, bytes.Repeat([]byte{0x42}, ceiling-wire.HeaderSize+1))
		next := buildFrame(wire.ObjectCipher, []byte("still-in-sync"))

		var dropped uint32
		fr := wire.NewFrameReader(bytes.NewReader(append(big, next...)), 0, ceiling)
		fr.OnDrop(func(l uint32) { dropped = l })

		_, err := fr.Next()
		Expect(err).To(MatchError(wire.ErrFrameDropped))
		Expect(dropped).To(Equal(uint32(len(big))))

		frame, err := fr.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(frame).To(Equal(next))
	})
})
