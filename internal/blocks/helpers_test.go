package blocks

import (
	"bytes"
	"testing"

	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/codec"
	"github.com/markusressel/controlbox/internal/persistence"
	"github.com/stretchr/testify/require"
)

func newTestContainer() (*Env, *cbox.ObjectContainer) {
	env := &Env{Version: "test", DeviceID: "c0ffee"}
	container := cbox.NewObjectContainer(persistence.NewMemoryStorage(), Factory(env), DefaultStartID, SystemObjects(env)...)
	env.Objects = container
	env.Groups = container
	return env, container
}

func payload(t *testing.T, data map[string]interface{}) []byte {
	m, err := codec.FromMap(data)
	require.NoError(t, err)
	b, err := m.Marshal()
	require.NoError(t, err)
	return b
}

func create(t *testing.T, c *cbox.ObjectContainer, typeID cbox.TypeID, id cbox.ObjectID, groups cbox.Groups, data map[string]interface{}) cbox.Object {
	obj, err := c.Factory().Make(typeID)
	require.NoError(t, err)
	require.NoError(t, obj.StreamFrom(bytes.NewReader(payload(t, data))))
	require.Equal(t, id, c.Add(obj, groups, id, false))
	require.NoError(t, c.Store(id))
	require.NoError(t, c.SyncActivation(id))
	return obj
}

func write(t *testing.T, obj cbox.Object, data map[string]interface{}) {
	require.NoError(t, obj.StreamFrom(bytes.NewReader(payload(t, data))))
}

func read(t *testing.T, obj cbox.Object) *codec.Message {
	var buf bytes.Buffer
	require.NoError(t, obj.StreamTo(&buf))
	m, err := codec.Unmarshal(buf.Bytes())
	require.NoError(t, err)
	return m
}

func readObject(t *testing.T, c *cbox.ObjectContainer, id cbox.ObjectID) *codec.Message {
	obj := c.Fetch(id)
	require.NotNil(t, obj)
	return read(t, obj)
}
