package persistence

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/ui"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketObjects = "objects"
)

// Storage is an object storage that needs to be prepared before use.
type Storage interface {
	cbox.ObjectStorage
	Init() error
}

// BoltStorage keeps one record per object in a bbolt database. The database
// is only opened for the duration of an operation.
type BoltStorage struct {
	dbPath string
}

func NewBoltStorage(dbPath string) *BoltStorage {
	return &BoltStorage{
		dbPath: dbPath,
	}
}

func (p *BoltStorage) Init() (err error) {
	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		// create directory
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *BoltStorage) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func objectKey(id cbox.ObjectID) []byte {
	key := make([]byte, 2)
	binary.BigEndian.PutUint16(key, uint16(id))
	return key
}

// bufferRecord runs write into a buffer. persist is false when the object
// does not need a record.
func bufferRecord(write func(w io.Writer) error) (data []byte, persist bool, err error) {
	var buf bytes.Buffer
	err = write(&buf)
	if errors.Is(err, cbox.ErrPersistingNotNeeded) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

func (p *BoltStorage) StoreObject(id cbox.ObjectID, write func(w io.Writer) error) error {
	data, persist, err := bufferRecord(write)
	if err != nil {
		return err
	}

	db, err := p.openPersistence()
	if err != nil {
		return errors.Wrapf(cbox.ErrPersistedStorageWrite, "open %s: %v", p.dbPath, err)
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketObjects))
		if err != nil {
			return err
		}
		if !persist {
			return b.Delete(objectKey(id))
		}
		return b.Put(objectKey(id), data)
	})
	if err != nil {
		return errors.Wrapf(cbox.ErrPersistedStorageWrite, "store object %d: %v", id, err)
	}
	return nil
}

func (p *BoltStorage) RetrieveObject(id cbox.ObjectID, read func(r io.Reader) error) error {
	db, err := p.openPersistence()
	if err != nil {
		return errors.Wrapf(cbox.ErrPersistedObjectNotFound, "open %s: %v", p.dbPath, err)
	}

	var data []byte
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketObjects))
		if b == nil {
			return cbox.ErrPersistedObjectNotFound
		}
		v := b.Get(objectKey(id))
		if v == nil {
			return cbox.ErrPersistedObjectNotFound
		}
		// v is only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	_ = db.Close()
	if err != nil {
		return err
	}
	return read(bytes.NewReader(data))
}

// RetrieveObjects calls read for every record in ascending id order. The
// database is closed before read is called, so read can use the storage.
func (p *BoltStorage) RetrieveObjects(read func(id cbox.ObjectID, r io.Reader) error) error {
	db, err := p.openPersistence()
	if err != nil {
		return errors.Wrapf(cbox.ErrPersistedBlockStream, "open %s: %v", p.dbPath, err)
	}

	var records []record
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketObjects))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if len(k) != 2 {
				ui.Warning("Skipping stored record with invalid key %x", k)
				return nil
			}
			records = append(records, record{
				id:   cbox.ObjectID(binary.BigEndian.Uint16(k)),
				data: append([]byte(nil), v...),
			})
			return nil
		})
	})
	_ = db.Close()
	if err != nil {
		return errors.Wrapf(cbox.ErrPersistedBlockStream, "read objects: %v", err)
	}
	return replay(records, read)
}

func (p *BoltStorage) DisposeObject(id cbox.ObjectID) bool {
	db, err := p.openPersistence()
	if err != nil {
		ui.Error("Unable to open %s: %v", p.dbPath, err)
		return false
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	found := false
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketObjects))
		if b == nil {
			// no object bucket yet
			return nil
		}
		if b.Get(objectKey(id)) == nil {
			return nil
		}
		found = true
		return b.Delete(objectKey(id))
	})
	if err != nil {
		ui.Error("Unable to delete stored object %d: %v", id, err)
		return false
	}
	return found
}

func (p *BoltStorage) Clear() error {
	db, err := p.openPersistence()
	if err != nil {
		return errors.Wrapf(cbox.ErrPersistedStorageWrite, "open %s: %v", p.dbPath, err)
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	err = db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(BucketObjects)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(BucketObjects))
	})
	if err != nil {
		return errors.Wrapf(cbox.ErrPersistedStorageWrite, "clear objects: %v", err)
	}
	return nil
}
