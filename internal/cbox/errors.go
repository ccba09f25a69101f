package cbox

import (
	"errors"
	"fmt"
)

// Error is the closed set of protocol and storage error codes. The numeric
// value is sent as the status byte of a reply.
type Error uint8

const (
	ErrUnknown Error = 1

	ErrOutputStreamWrite    Error = 9
	ErrInputStreamRead      Error = 10
	ErrInputStreamDecoding  Error = 11
	ErrOutputStreamEncoding Error = 12

	ErrPersistedObjectNotFound Error = 17
	ErrPersistedBlockStream    Error = 20
	ErrPersistedStorageWrite   Error = 21
	ErrPersistingNotNeeded     Error = 23

	ErrObjectNotCreatable Error = 34
	ErrObjectNotDeletable Error = 35
	ErrInsufficientHeap   Error = 38

	ErrInvalidCommand    Error = 63
	ErrInvalidObjectID   Error = 65
	ErrInvalidObjectType Error = 66
	ErrCrcErrorInCommand Error = 70
)

var errorNames = map[Error]string{
	ErrUnknown:                 "UNKNOWN_ERROR",
	ErrOutputStreamWrite:       "OUTPUT_STREAM_WRITE_ERROR",
	ErrInputStreamRead:         "INPUT_STREAM_READ_ERROR",
	ErrInputStreamDecoding:     "INPUT_STREAM_DECODING_ERROR",
	ErrOutputStreamEncoding:    "OUTPUT_STREAM_ENCODING_ERROR",
	ErrPersistedObjectNotFound: "PERSISTED_OBJECT_NOT_FOUND",
	ErrPersistedBlockStream:    "PERSISTED_BLOCK_STREAM_ERROR",
	ErrPersistedStorageWrite:   "PERSISTED_STORAGE_WRITE_ERROR",
	ErrPersistingNotNeeded:     "PERSISTING_NOT_NEEDED",
	ErrObjectNotCreatable:      "OBJECT_NOT_CREATABLE",
	ErrObjectNotDeletable:      "OBJECT_NOT_DELETABLE",
	ErrInsufficientHeap:        "INSUFFICIENT_HEAP",
	ErrInvalidCommand:          "INVALID_COMMAND",
	ErrInvalidObjectID:         "INVALID_OBJECT_ID",
	ErrInvalidObjectType:       "INVALID_OBJECT_TYPE",
	ErrCrcErrorInCommand:       "CRC_ERROR_IN_COMMAND",
}

func (e Error) Error() string {
	if name, ok := errorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("CBOX_ERROR_%d", uint8(e))
}

// StatusOk is the status byte of a successful reply.
const StatusOk uint8 = 0

// StatusOf maps an error to the status byte sent on the wire.
func StatusOf(err error) uint8 {
	if err == nil {
		return StatusOk
	}
	var cboxErr Error
	if errors.As(err, &cboxErr) {
		return uint8(cboxErr)
	}
	return uint8(ErrUnknown)
}
