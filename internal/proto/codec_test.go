package proto_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/msapi-manager/internal/proto"
)

var _ = Describe("ParameterSet encoding", func() {
	It("round-trips a parameter set mixing several scalar types", func() {
		now := time.Now().UTC().Round(time.Second)
		ps := proto.ParameterSet{
			1: proto.BoolValue(true),
			2: proto.Int32Value(-42),
			3: proto.Uint64Value(9999999999),
			4: proto.StringValue("hello world"),
			5: proto.DoubleValue(3.5),
			6: proto.DurationValue(250 * time.Millisecond),
			7: proto.TimerValue(now),
		}

		buf, err := proto.EncodeParameters(nil, ps)
		Expect(err).NotTo(HaveOccurred())

		out, n, err := proto.DecodeParameters(buf, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(len(buf)))
		Expect(out).To(HaveLen(len(ps)))

		b, _ := out[1].Bool()
		Expect(b).To(BeTrue())

		i, _ := out[2].Int64()
		Expect(i).To(Equal(int64(-42)))

		u, _ := out[3].Int64()
		Expect(u).To(Equal(int64(9999999999)))

		s, _ := out[4].String()
		Expect(s).To(Equal("hello world"))

		f, _ := out[5].Float64()
		Expect(f).To(Equal(3.5))
	})

	It("round-trips a present and an absent optional", func() {
		v := int32(7)
		ps := proto.ParameterSet{
			1: proto.OptionalInt32Value(&v),
			2: proto.OptionalInt32Value(nil),
		}
		buf, err := proto.EncodeParameters(nil, ps)
		Expect(err).NotTo(HaveOccurred())

		out, _, err := proto.DecodeParameters(buf, nil)
		Expect(err).NotTo(HaveOccurred())

		p1 := out[1].V.(*int32)
		Expect(p1).NotTo(BeNil())
		Expect(*p1).To(Equal(int32(7)))

		p2 := out[2].V.(*int32)
		Expect(p2).To(BeNil())
	})

	It("round-trips a table valued parameter using the caller's schema", func() {
		schema := proto.TableSchema{10: {proto.TypeString, proto.TypeInt32}}
		ps := proto.ParameterSet{
			10: proto.TableValue(proto.Table{
				Columns: schema[10],
				Rows: [][]any{
					{"row-a", int32(1)},
					{"row-b", int32(2)},
				},
			}),
		}
		buf, err := proto.EncodeParameters(nil, ps)
		Expect(err).NotTo(HaveOccurred())

		out, _, err := proto.DecodeParameters(buf, schema)
		Expect(err).NotTo(HaveOccurred())

		tbl, err := out[10].Table()
		Expect(err).NotTo(HaveOccurred())
		Expect(tbl.Rows).To(HaveLen(2))
		Expect(tbl.Rows[0][0]).To(Equal("row-a"))
		Expect(tbl.Rows[1][1]).To(Equal(int32(2)))
	})

	It("decodes an empty table as zero rows", func() {
		schema := proto.TableSchema{1: {proto.TypeBool}}
		ps := proto.ParameterSet{1: proto.TableValue(proto.Table{Columns: schema[1]})}
		buf, err := proto.EncodeParameters(nil, ps)
		Expect(err).NotTo(HaveOccurred())

		out, _, err := proto.DecodeParameters(buf, schema)
		Expect(err).NotTo(HaveOccurred())
		tbl, _ := out[1].Table()
		Expect(tbl.Rows).To(BeEmpty())
	})
})

var _ = Describe("Message framing", func() {
	It("round-trips a Hello action frame", func() {
		frame, err := proto.BuildFrame(proto.HelloMessage())
		Expect(err).NotTo(HaveOccurred())

		m, err := proto.DecodePayload(frame[8:], nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Type).To(Equal(proto.MsgAction))
		Expect(m.Action).To(Equal(proto.ActionHello))
	})

	It("round-trips a Modify action frame carrying parameters", func() {
		ps := proto.ParameterSet{1: proto.StringValue("new-name")}
		frame, err := proto.BuildFrame(proto.ModifyMessage(ps))
		Expect(err).NotTo(HaveOccurred())

		m, err := proto.DecodePayload(frame[8:], nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Action).To(Equal(proto.ActionModify))
		s, _ := m.Parameters[1].String()
		Expect(s).To(Equal("new-name"))
	})

	It("round-trips a metadata message", func() {
		frame, err := proto.BuildFrame(proto.MetadataMessage(`{"fields":[]}`))
		Expect(err).NotTo(HaveOccurred())

		m, err := proto.DecodePayload(frame[8:], nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Type).To(Equal(proto.MsgMetadata))
		Expect(m.Metadata).To(Equal(`{"fields":[]}`))
	})
})

var _ = Describe("CoerceJSONParameter", func() {
	It("widens a JSON number into the declared signed width", func() {
		v, err := proto.CoerceJSONParameter(proto.TypeInt16, json.RawMessage(`1200`))
		Expect(err).NotTo(HaveOccurred())
		n, _ := v.Int64()
		Expect(n).To(Equal(int64(1200)))
	})

	It("rejects an out of range value for the declared width", func() {
		_, err := proto.CoerceJSONParameter(proto.TypeInt8, json.RawMessage(`1000`))
		Expect(err).To(HaveOccurred())
	})

	It("accepts null only for an optional field", func() {
		v, err := proto.CoerceJSONParameter(proto.TypeOptionalUint32, json.RawMessage(`null`))
		Expect(err).NotTo(HaveOccurred())
		Expect(v.V).To(BeNil())

		_, err = proto.CoerceJSONParameter(proto.TypeUint32, json.RawMessage(`null`))
		Expect(err).To(HaveOccurred())
	})

	It("coerces a JSON string into a String value", func() {
		v, err := proto.CoerceJSONParameter(proto.TypeString, json.RawMessage(`"renamed"`))
		Expect(err).NotTo(HaveOccurred())
		s, _ := v.String()
		Expect(s).To(Equal("renamed"))
	})
})
