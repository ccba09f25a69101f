package box

import (
	"strconv"

	"github.com/markusressel/controlbox/internal/blocks"
	"github.com/markusressel/controlbox/internal/cbox"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/exp/slices"
)

// Snapshot is the last known state of one object, readable from any
// goroutine.
type Snapshot struct {
	ID       cbox.ObjectID          `json:"id"`
	Groups   []int64                `json:"groups"`
	Type     cbox.TypeID            `json:"type"`
	TypeName string                 `json:"typeName"`
	Inactive bool                   `json:"inactive"`
	Data     map[string]interface{} `json:"data"`
}

// SnapshotCache holds a Snapshot per object id. The control loop writes it,
// the api, statistics and publisher read it.
type SnapshotCache struct {
	objects cmap.ConcurrentMap[string, Snapshot]
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{objects: cmap.New[Snapshot]()}
}

func snapshotKey(id cbox.ObjectID) string {
	return strconv.Itoa(int(id))
}

func (s *SnapshotCache) Get(id cbox.ObjectID) (Snapshot, bool) {
	return s.objects.Get(snapshotKey(id))
}

// All returns all snapshots sorted by id.
func (s *SnapshotCache) All() []Snapshot {
	result := make([]Snapshot, 0, s.objects.Count())
	for _, snapshot := range s.objects.Items() {
		result = append(result, snapshot)
	}
	slices.SortFunc(result, func(a, b Snapshot) int {
		return int(a.ID) - int(b.ID)
	})
	return result
}

func (s *SnapshotCache) Count() int {
	return s.objects.Count()
}

func (s *SnapshotCache) set(snapshot Snapshot) {
	s.objects.Set(snapshotKey(snapshot.ID), snapshot)
}

func (s *SnapshotCache) remove(id cbox.ObjectID) {
	s.objects.Remove(snapshotKey(id))
}

// retain drops all snapshots whose id is not in ids.
func (s *SnapshotCache) retain(ids map[cbox.ObjectID]bool) {
	for _, key := range s.objects.Keys() {
		id, err := strconv.Atoi(key)
		if err != nil || !ids[cbox.ObjectID(id)] {
			s.objects.Remove(key)
		}
	}
}

func groupList(groups cbox.Groups) []int64 {
	list := blocks.GroupsToList(groups)
	if groups&cbox.SystemGroup != 0 {
		list = append(list, 7)
	}
	return list
}
