package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/cbox"
	"github.com/markusressel/controlbox/internal/persistence"
)

// boxExecutor runs requests directly on a box, without a control loop.
type boxExecutor struct {
	box      *box.Box
	requests []box.Request
}

func (e *boxExecutor) Execute(ctx context.Context, request box.Request) (box.Reply, error) {
	e.requests = append(e.requests, request)
	return e.box.Execute(request), nil
}

func newTestService(t *testing.T) (*boxExecutor, http.Handler) {
	b := box.New(persistence.NewMemoryStorage(), box.DefaultOptions())
	_, err := b.CreateObjectFromMap(100, 0x01, "TempSensorMock", map[string]interface{}{"setting": 20})
	require.NoError(t, err)
	b.Update(0)
	executor := &boxExecutor{box: b}
	return executor, CreateRestService(b.Snapshots(), executor, prometheus.NewRegistry())
}

func serve(handler http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRest_Alive(t *testing.T) {
	// GIVEN
	_, handler := newTestService(t)

	// WHEN
	rec := serve(handler, http.MethodGet, "/alive", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRest_GetObjects(t *testing.T) {
	// GIVEN
	_, handler := newTestService(t)

	// WHEN
	rec := serve(handler, http.MethodGet, "/object/", "")

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	var objects []box.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &objects))
	require.Len(t, objects, 4)
	assert.Equal(t, cbox.ObjectID(100), objects[3].ID)
	assert.Equal(t, "TempSensorMock", objects[3].TypeName)
	assert.Equal(t, 20.0, objects[3].Data["value"])
}

func TestRest_GetObject(t *testing.T) {
	// GIVEN
	_, handler := newTestService(t)

	// WHEN
	rec := serve(handler, http.MethodGet, "/object/2/", "")

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	var object box.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &object))
	assert.Equal(t, "SysInfo", object.TypeName)
}

func TestRest_GetObject_NotFound(t *testing.T) {
	// GIVEN
	_, handler := newTestService(t)

	// WHEN
	rec := serve(handler, http.MethodGet, "/object/555/", "")

	// THEN
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRest_GetObject_InvalidID(t *testing.T) {
	// GIVEN
	_, handler := newTestService(t)

	// WHEN
	rec := serve(handler, http.MethodGet, "/object/abc/", "")

	// THEN
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRest_DeleteObject(t *testing.T) {
	// GIVEN
	executor, handler := newTestService(t)

	// WHEN
	rec := serve(handler, http.MethodDelete, "/object/100/", "")

	// THEN
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, executor.requests, 1)
	assert.Equal(t, box.OpDeleteObject, executor.requests[0].Opcode)
	assert.Nil(t, executor.box.Container().Fetch(100))

	rec = serve(handler, http.MethodGet, "/object/100/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRest_DeleteObject_System(t *testing.T) {
	// GIVEN
	_, handler := newTestService(t)

	// WHEN
	rec := serve(handler, http.MethodDelete, "/object/1/", "")

	// THEN
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "OBJECT_NOT_DELETABLE")
}

func TestRest_PostCommand(t *testing.T) {
	// GIVEN
	_, handler := newTestService(t)
	line := box.Request{MsgID: 12, Opcode: box.OpReadObject, Payload: box.IDPayload(100)}.Encode()

	// WHEN
	rec := serve(handler, http.MethodPost, "/command/", line+"\n")

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	var result CommandReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, uint16(12), result.MsgID)
	assert.Equal(t, cbox.StatusOk, result.Status)
	assert.Empty(t, result.Error)
	reply, err := box.DecodeReply(result.Reply)
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Payload)
}

func TestRest_PostCommand_Garbage(t *testing.T) {
	// GIVEN
	executor, handler := newTestService(t)

	// WHEN
	rec := serve(handler, http.MethodPost, "/command/", "xyz")

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	var result CommandReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, uint8(cbox.ErrInvalidCommand), result.Status)
	assert.Equal(t, "INVALID_COMMAND", result.Error)
	assert.Empty(t, executor.requests)
}

func TestRest_Metrics(t *testing.T) {
	// GIVEN
	_, handler := newTestService(t)
	serve(handler, http.MethodGet, "/alive/", "")

	// WHEN
	rec := serve(handler, http.MethodGet, "/metrics/", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "api_requests_total")
}
