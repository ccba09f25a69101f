package box

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"strings"

	"github.com/markusressel/controlbox/internal/cbox"
)

// Opcode selects the command of a request.
type Opcode uint8

const (
	OpNone              Opcode = 0
	OpReadObject        Opcode = 1
	OpWriteObject       Opcode = 2
	OpCreateObject      Opcode = 3
	OpDeleteObject      Opcode = 4
	OpListObjects       Opcode = 5
	OpReadStoredObject  Opcode = 6
	OpListStoredObjects Opcode = 7
	OpClearObjects      Opcode = 8
)

var opcodeNames = map[Opcode]string{
	OpNone:              "NONE",
	OpReadObject:        "READ_OBJECT",
	OpWriteObject:       "WRITE_OBJECT",
	OpCreateObject:      "CREATE_OBJECT",
	OpDeleteObject:      "DELETE_OBJECT",
	OpListObjects:       "LIST_OBJECTS",
	OpReadStoredObject:  "READ_STORED_OBJECT",
	OpListStoredObjects: "LIST_STORED_OBJECTS",
	OpClearObjects:      "CLEAR_OBJECTS",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// OpcodeByName looks up an opcode by its name, case-insensitive.
func OpcodeByName(name string) (Opcode, bool) {
	for op, opName := range opcodeNames {
		if strings.EqualFold(opName, name) {
			return op, true
		}
	}
	return OpNone, false
}

const (
	requestHeaderSize = 3
	replyHeaderSize   = 3
	recordHeaderSize  = 7
)

// Request is one decoded command.
type Request struct {
	MsgID   uint16
	Opcode  Opcode
	Payload []byte
}

// Reply is the answer to a Request. Payload is only set when Status is ok.
type Reply struct {
	MsgID   uint16
	Status  uint8
	Payload []byte
}

// Err returns the reply status as an error, or nil when it is ok.
func (r Reply) Err() error {
	if r.Status == cbox.StatusOk {
		return nil
	}
	return cbox.Error(r.Status)
}

// Crc8 calculates the CRC-8 (polynomial 0x07, initial value 0) of data.
func Crc8(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// appendCrc hex encodes data followed by its checksum.
func appendCrc(data []byte) string {
	framed := append(data, Crc8(data))
	return hex.EncodeToString(framed)
}

// unframe decodes a hex line and checks its trailing checksum.
func unframe(line string) ([]byte, error) {
	line = strings.TrimSpace(line)
	data, err := hex.DecodeString(line)
	if err != nil || len(data) < 2 {
		return nil, cbox.ErrInvalidCommand
	}
	body := data[:len(data)-1]
	if Crc8(body) != data[len(data)-1] {
		return body, cbox.ErrCrcErrorInCommand
	}
	return body, nil
}

func (r Request) Encode() string {
	data := make([]byte, requestHeaderSize, requestHeaderSize+len(r.Payload)+1)
	binary.LittleEndian.PutUint16(data[0:2], r.MsgID)
	data[2] = byte(r.Opcode)
	data = append(data, r.Payload...)
	return appendCrc(data)
}

// DecodeRequest parses a hex request line. On a checksum error the message
// id is still returned when it could be read, so the reply can refer to it.
func DecodeRequest(line string) (Request, error) {
	body, err := unframe(line)
	if len(body) < requestHeaderSize {
		if err == nil {
			err = cbox.ErrInvalidCommand
		}
		if len(body) >= 2 {
			return Request{MsgID: binary.LittleEndian.Uint16(body[0:2])}, err
		}
		return Request{}, err
	}
	request := Request{
		MsgID:   binary.LittleEndian.Uint16(body[0:2]),
		Opcode:  Opcode(body[2]),
		Payload: body[requestHeaderSize:],
	}
	return request, err
}

func (r Reply) Encode() string {
	data := make([]byte, replyHeaderSize, replyHeaderSize+len(r.Payload)+1)
	binary.LittleEndian.PutUint16(data[0:2], r.MsgID)
	data[2] = r.Status
	data = append(data, r.Payload...)
	return appendCrc(data)
}

// DecodeReply parses a hex reply line.
func DecodeReply(line string) (Reply, error) {
	body, err := unframe(line)
	if err != nil {
		return Reply{}, err
	}
	if len(body) < replyHeaderSize {
		return Reply{}, cbox.ErrInvalidCommand
	}
	return Reply{
		MsgID:   binary.LittleEndian.Uint16(body[0:2]),
		Status:  body[2],
		Payload: body[replyHeaderSize:],
	}, nil
}

// Record is the wire form of one object: id, groups, type and payload.
type Record struct {
	ID     cbox.ObjectID
	Groups cbox.Groups
	Type   cbox.TypeID
	Data   []byte
}

func (r Record) AppendTo(out []byte) []byte {
	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint16(header[0:2], uint16(r.ID))
	header[2] = byte(r.Groups)
	binary.LittleEndian.PutUint16(header[3:5], uint16(r.Type))
	binary.LittleEndian.PutUint16(header[5:7], uint16(len(r.Data)))
	out = append(out, header[:]...)
	return append(out, r.Data...)
}

// ReadRecord reads one record. It returns io.EOF when r is empty.
func ReadRecord(r io.Reader) (Record, error) {
	var header [recordHeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if n == 0 && err == io.EOF {
		return Record{}, io.EOF
	}
	if err != nil {
		return Record{}, cbox.ErrInputStreamRead
	}
	record := Record{
		ID:     cbox.ObjectID(binary.LittleEndian.Uint16(header[0:2])),
		Groups: cbox.Groups(header[2]),
		Type:   cbox.TypeID(binary.LittleEndian.Uint16(header[3:5])),
		Data:   make([]byte, binary.LittleEndian.Uint16(header[5:7])),
	}
	if _, err = io.ReadFull(r, record.Data); err != nil {
		return Record{}, cbox.ErrInputStreamRead
	}
	return record, nil
}

// ReadRecords reads records until r is exhausted.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	for {
		record, err := ReadRecord(r)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

// IDPayload encodes the payload of the commands that only carry an id.
func IDPayload(id cbox.ObjectID) []byte {
	var data [2]byte
	binary.LittleEndian.PutUint16(data[:], uint16(id))
	return data[:]
}

func readIDPayload(payload []byte) (cbox.ObjectID, error) {
	if len(payload) < 2 {
		return cbox.InvalidID, cbox.ErrInputStreamRead
	}
	return cbox.ObjectID(binary.LittleEndian.Uint16(payload[0:2])), nil
}
