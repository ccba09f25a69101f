package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/ui"
	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

const crcSize = 4

var objectFilePattern = regexp.MustCompile(`^(\d{5})\.obj$`)

// FileStorage keeps one file per object. Each file ends with a CRC32 of its
// content, files are replaced atomically.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

func (s *FileStorage) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrapf(err, "create storage directory %s", s.dir)
	}
	return nil
}

func (s *FileStorage) path(id cbox.ObjectID) string {
	return filepath.Join(s.dir, fmt.Sprintf("%05d.obj", id))
}

func (s *FileStorage) StoreObject(id cbox.ObjectID, write func(w io.Writer) error) error {
	data, persist, err := bufferRecord(write)
	if err != nil {
		return err
	}
	if !persist {
		s.DisposeObject(id)
		return nil
	}
	var crc [crcSize]byte
	binary.LittleEndian.PutUint32(crc[:], crc32.ChecksumIEEE(data))
	content := append(data, crc[:]...)
	if err := atomic.WriteFile(s.path(id), bytes.NewReader(content)); err != nil {
		return errors.Wrapf(cbox.ErrPersistedStorageWrite, "store object %d: %v", id, err)
	}
	return nil
}

func (s *FileStorage) load(id cbox.ObjectID) ([]byte, error) {
	content, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, cbox.ErrPersistedObjectNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(cbox.ErrPersistedBlockStream, "read object %d: %v", id, err)
	}
	if len(content) < crcSize {
		return nil, errors.Wrapf(cbox.ErrPersistedBlockStream, "object %d: file too short", id)
	}
	data := content[:len(content)-crcSize]
	if crc32.ChecksumIEEE(data) != binary.LittleEndian.Uint32(content[len(content)-crcSize:]) {
		return nil, errors.Wrapf(cbox.ErrPersistedBlockStream, "object %d: checksum mismatch", id)
	}
	return data, nil
}

func (s *FileStorage) RetrieveObject(id cbox.ObjectID, read func(r io.Reader) error) error {
	data, err := s.load(id)
	if err != nil {
		return err
	}
	return read(bytes.NewReader(data))
}

func (s *FileStorage) ids() []cbox.ObjectID {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var ids []cbox.ObjectID
	for _, entry := range entries {
		match := objectFilePattern.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil || n > 0xFFFF {
			continue
		}
		ids = append(ids, cbox.ObjectID(n))
	}
	return ids
}

func (s *FileStorage) RetrieveObjects(read func(id cbox.ObjectID, r io.Reader) error) error {
	var records []record
	for _, id := range s.ids() {
		data, err := s.load(id)
		if err != nil {
			ui.Warning("Skipping stored object %d: %v", id, err)
			continue
		}
		records = append(records, record{id: id, data: data})
	}
	sortRecords(records)
	return replay(records, read)
}

func (s *FileStorage) DisposeObject(id cbox.ObjectID) bool {
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		ui.Error("Unable to delete stored object %d: %v", id, err)
	}
	return err == nil
}

func (s *FileStorage) Clear() error {
	var result error
	for _, id := range s.ids() {
		if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
			result = errors.Wrapf(cbox.ErrPersistedStorageWrite, "delete object %d: %v", id, err)
		}
	}
	return result
}
