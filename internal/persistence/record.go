package persistence

import (
	"bytes"
	"io"

	"github.com/markusressel/controlbox/internal/cbox"
	"go.uber.org/multierr"
	"golang.org/x/exp/slices"
)

type record struct {
	id   cbox.ObjectID
	data []byte
}

func sortRecords(records []record) {
	slices.SortFunc(records, func(a, b record) int {
		return int(a.id) - int(b.id)
	})
}

// replay calls read for every record. Errors are collected, a failing record
// does not stop the others.
func replay(records []record, read func(id cbox.ObjectID, r io.Reader) error) error {
	var result error
	for _, rec := range records {
		multierr.AppendInto(&result, read(rec.id, bytes.NewReader(rec.data)))
	}
	return result
}
