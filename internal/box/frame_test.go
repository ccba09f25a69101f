package box

import (
	"bytes"
	"strings"
	"testing"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/stretchr/testify/assert"
)

func TestCrc8(t *testing.T) {
	// GIVEN
	data := []byte("123456789")

	// WHEN
	crc := Crc8(data)

	// THEN
	assert.Equal(t, uint8(0xF4), crc)
}

func TestCrc8_Empty(t *testing.T) {
	assert.Equal(t, uint8(0), Crc8(nil))
}

func TestRequest_EncodeDecode(t *testing.T) {
	// GIVEN
	request := Request{MsgID: 0x1234, Opcode: OpReadObject, Payload: IDPayload(100)}

	// WHEN
	line := request.Encode()
	decoded, err := DecodeRequest(line)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, "3412016400", line[:10])
	assert.Equal(t, request, decoded)
}

func TestDecodeRequest_UpperCase(t *testing.T) {
	// GIVEN
	line := strings.ToUpper(Request{MsgID: 7, Opcode: OpListObjects, Payload: []byte{}}.Encode())

	// WHEN
	decoded, err := DecodeRequest(line + "\r\n")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, uint16(7), decoded.MsgID)
	assert.Equal(t, OpListObjects, decoded.Opcode)
}

func TestDecodeRequest_CrcError(t *testing.T) {
	// GIVEN
	line := Request{MsgID: 42, Opcode: OpListObjects}.Encode()
	corrupted := line[:len(line)-2] + "00"
	if corrupted == line {
		corrupted = line[:len(line)-2] + "01"
	}

	// WHEN
	decoded, err := DecodeRequest(corrupted)

	// THEN
	assert.ErrorIs(t, err, cbox.ErrCrcErrorInCommand)
	assert.Equal(t, uint16(42), decoded.MsgID)
}

func TestDecodeRequest_NotHex(t *testing.T) {
	// WHEN
	_, err := DecodeRequest("hello")

	// THEN
	assert.ErrorIs(t, err, cbox.ErrInvalidCommand)
}

func TestDecodeRequest_TooShort(t *testing.T) {
	// GIVEN
	data := []byte{0x01, 0x00}
	line := appendCrc(data)

	// WHEN
	decoded, err := DecodeRequest(line)

	// THEN
	assert.ErrorIs(t, err, cbox.ErrInvalidCommand)
	assert.Equal(t, uint16(1), decoded.MsgID)
}

func TestReply_Err(t *testing.T) {
	assert.NoError(t, Reply{Status: cbox.StatusOk}.Err())
	assert.ErrorIs(t, Reply{Status: uint8(cbox.ErrInvalidObjectID)}.Err(), cbox.ErrInvalidObjectID)
}

func TestRecords_RoundTrip(t *testing.T) {
	// GIVEN
	records := []Record{
		{ID: 100, Groups: 0x01, Type: 301, Data: []byte{1, 2, 3}},
		{ID: 2, Groups: cbox.SystemGroup, Type: 2, Data: []byte{}},
	}
	var out []byte
	for _, record := range records {
		out = record.AppendTo(out)
	}

	// WHEN
	decoded, err := ReadRecords(bytes.NewReader(out))

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, records, decoded)
}

func TestReadRecord_Truncated(t *testing.T) {
	// GIVEN
	out := Record{ID: 100, Type: 301, Data: []byte{1, 2, 3}}.AppendTo(nil)

	// WHEN
	_, err := ReadRecord(bytes.NewReader(out[:len(out)-1]))

	// THEN
	assert.ErrorIs(t, err, cbox.ErrInputStreamRead)
}

func TestOpcodeByName(t *testing.T) {
	op, ok := OpcodeByName("list_objects")
	assert.True(t, ok)
	assert.Equal(t, OpListObjects, op)

	_, ok = OpcodeByName("FLY")
	assert.False(t, ok)
}
