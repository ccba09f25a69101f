package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/cbox"
)

func (s *RestService) registerCommandEndpoints(rest *echo.Echo) {
	rest.POST("/command/", s.postCommand)
}

// executes a hex encoded request line and returns the reply
func (s *RestService) postCommand(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 64*1024))
	if err != nil {
		return returnBadRequest(c, err)
	}

	var reply box.Reply
	request, err := box.DecodeRequest(strings.TrimSpace(string(body)))
	if err != nil {
		reply = box.Reply{MsgID: request.MsgID, Status: cbox.StatusOf(err)}
	} else {
		reply, err = s.executor.Execute(c.Request().Context(), request)
		if err != nil {
			return returnError(c, err)
		}
	}

	result := CommandReply{
		MsgID:  reply.MsgID,
		Status: reply.Status,
		Reply:  reply.Encode(),
	}
	if err = reply.Err(); err != nil {
		result.Error = err.Error()
	}
	return c.JSONPretty(http.StatusOK, result, indentationChar)
}
