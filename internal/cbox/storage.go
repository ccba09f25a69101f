package cbox

import (
	"encoding/binary"
	"io"
)

// ObjectStorage persists one blob per object id.
//
// StoreObject calls write with a writer that buffers the record. When write
// returns ErrPersistingNotNeeded, any previous record for the id is deleted
// and StoreObject returns nil. A record is only replaced when write succeeds.
type ObjectStorage interface {
	StoreObject(id ObjectID, write func(w io.Writer) error) error
	RetrieveObject(id ObjectID, read func(r io.Reader) error) error
	RetrieveObjects(read func(id ObjectID, r io.Reader) error) error
	DisposeObject(id ObjectID) bool
	Clear() error
}

const recordHeaderSize = 3

// writeRecordHeader writes the type id and groups that precede the persisted
// payload of an object.
func writeRecordHeader(w io.Writer, typeID TypeID, groups Groups) error {
	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint16(header[0:2], uint16(typeID))
	header[2] = byte(groups)
	if _, err := w.Write(header[:]); err != nil {
		return ErrPersistedStorageWrite
	}
	return nil
}

func readRecordHeader(r io.Reader) (TypeID, Groups, error) {
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, 0, ErrPersistedBlockStream
	}
	return TypeID(binary.LittleEndian.Uint16(header[0:2])), Groups(header[2]), nil
}

// StoredRecord is a decoded storage record, used by tools that inspect
// storage without a live container.
type StoredRecord struct {
	ID     ObjectID
	Type   TypeID
	Groups Groups
	Data   []byte
}

// ReadStoredRecord decodes the header and payload of one record.
func ReadStoredRecord(id ObjectID, r io.Reader) (StoredRecord, error) {
	typeID, groups, err := readRecordHeader(r)
	if err != nil {
		return StoredRecord{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return StoredRecord{}, ErrPersistedBlockStream
	}
	return StoredRecord{ID: id, Type: typeID, Groups: groups, Data: data}, nil
}
