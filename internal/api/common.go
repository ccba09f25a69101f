package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/markusressel/controlbox/internal/box"
)

const (
	urlParamId      = "id"
	indentationChar = "  "
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}

	// CommandReply is the json form of a box reply.
	CommandReply struct {
		MsgID  uint16 `json:"msgId"`
		Status uint8  `json:"status"`
		Error  string `json:"error,omitempty"`
		Reply  string `json:"reply"`
	}
)

// Executor runs requests on the control loop.
type Executor interface {
	Execute(ctx context.Context, request box.Request) (box.Reply, error)
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}

func returnBadRequest(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusBadRequest, &Result{
		Name:    "Bad Request",
		Message: e.Error(),
	}, indentationChar)
}

// return the error message of an error
func returnError(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusInternalServerError, &Result{
		Name:    "Unknown Error",
		Message: e.Error(),
	}, indentationChar)
}
