/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package proto

import (
	"encoding/binary"
	"fmt"

	"github.com/nabbar/msapi-manager/internal/wire"
)

// MessageType discriminates the three shapes of object-protocol payload that
// ride behind a wire.ObjectCipher frame header.
type MessageType byte

const (
	MsgParameters MessageType = iota + 1
	MsgAction
	MsgMetadata
)

// ActionCode names the single-byte action that follows a MsgAction
// discriminator: the hello handshake, the parameters and metadata requests,
// the three lifecycle requests (pause, run, delete), and the modify action.
type ActionCode byte

const (
	ActionHello ActionCode = iota + 1
	ActionParametersRequest
	ActionMetadataRequest
	ActionPause
	ActionRun
	ActionDelete
	ActionModify
)

func (a ActionCode) String() string {
	switch a {
	case ActionHello:
		return "Hello"
	case ActionParametersRequest:
		return "ParametersRequest"
	case ActionMetadataRequest:
		return "MetadataRequest"
	case ActionPause:
		return "Pause"
	case ActionRun:
		return "Run"
	case ActionDelete:
		return "Delete"
	case ActionModify:
		return "Modify"
	default:
		return "Unknown"
	}
}

// Message is a decoded object-protocol payload: which of the three shapes it
// is, and whichever of Action/Parameters/Metadata that shape populates.
type Message struct {
	Type       MessageType
	Action     ActionCode
	Parameters ParameterSet
	Metadata   string
}

// HelloMessage, ParametersRequestMessage, etc. build the zero-payload action
// frames; ModifyMessage and ParametersMessage carry a parameter set.
func HelloMessage() Message                       { return Message{Type: MsgAction, Action: ActionHello} }
func ParametersRequestMessage() Message            { return Message{Type: MsgAction, Action: ActionParametersRequest} }
func MetadataRequestMessage() Message              { return Message{Type: MsgAction, Action: ActionMetadataRequest} }
func PauseMessage() Message                        { return Message{Type: MsgAction, Action: ActionPause} }
func RunMessage() Message                          { return Message{Type: MsgAction, Action: ActionRun} }
func DeleteMessage() Message                       { return Message{Type: MsgAction, Action: ActionDelete} }
func ModifyMessage(ps ParameterSet) Message        { return Message{Type: MsgAction, Action: ActionModify, Parameters: ps} }
func ParametersMessage(ps ParameterSet) Message     { return Message{Type: MsgParameters, Parameters: ps} }
func MetadataMessage(json string) Message          { return Message{Type: MsgMetadata, Metadata: json} }

// EncodePayload renders m's body, not including the 8-byte wire.Header.
func EncodePayload(m Message) ([]byte, error) {
	buf := []byte{byte(m.Type)}
	switch m.Type {
	case MsgParameters:
		return EncodeParameters(buf, m.Parameters)
	case MsgAction:
		buf = append(buf, byte(m.Action))
		if m.Action == ActionModify {
			return EncodeParameters(buf, m.Parameters)
		}
		return buf, nil
	case MsgMetadata:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.Metadata)))
		return append(buf, m.Metadata...), nil
	default:
		return nil, fmt.Errorf("proto: unknown message type %d", m.Type)
	}
}

// DecodePayload parses a Message out of a frame's body (everything after the
// 8-byte wire.Header), resolving any table-valued parameter using schema.
func DecodePayload(b []byte, schema TableSchema) (Message, error) {
	if len(b) < 1 {
		return Message{}, fmt.Errorf("proto: empty payload")
	}
	mt := MessageType(b[0])
	b = b[1:]

	switch mt {
	case MsgParameters:
		ps, _, err := DecodeParameters(b, schema)
		if err != nil {
			return Message{}, err
		}
		return Message{Type: MsgParameters, Parameters: ps}, nil
	case MsgAction:
		if len(b) < 1 {
			return Message{}, fmt.Errorf("proto: action message missing action code")
		}
		ac := ActionCode(b[0])
		m := Message{Type: MsgAction, Action: ac}
		if ac == ActionModify {
			ps, _, err := DecodeParameters(b[1:], schema)
			if err != nil {
				return Message{}, err
			}
			m.Parameters = ps
		}
		return m, nil
	case MsgMetadata:
		if len(b) < 4 {
			return Message{}, fmt.Errorf("proto: metadata message missing length prefix")
		}
		n := binary.LittleEndian.Uint32(b)
		if uint32(len(b)) < 4+n {
			return Message{}, fmt.Errorf("proto: metadata message truncated")
		}
		return Message{Type: MsgMetadata, Metadata: string(b[4 : 4+n])}, nil
	default:
		return Message{}, fmt.Errorf("proto: unknown message type %d", mt)
	}
}

// BuildFrame wraps m in a full wire.ObjectCipher frame, header included.
func BuildFrame(m Message) ([]byte, error) {
	payload, err := EncodePayload(m)
	if err != nil {
		return nil, err
	}
	out := make([]byte, wire.HeaderSize+len(payload))
	wire.PutHeader(out, wire.Header{Cipher: wire.ObjectCipher, Length: uint32(len(out))})
	copy(out[wire.HeaderSize:], payload)
	return out, nil
}
