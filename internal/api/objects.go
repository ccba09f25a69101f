package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"

	"github.com/markusressel/controlbox/internal/box"
	"github.com/markusressel/controlbox/internal/cbox"
)

func (s *RestService) registerObjectEndpoints(rest *echo.Echo) {
	group := rest.Group("/object")

	group.GET("/", s.getObjects)
	group.GET("/:"+urlParamId+"/", s.getObject)
	group.DELETE("/:"+urlParamId+"/", s.deleteObject)
}

func parseID(c echo.Context) (cbox.ObjectID, error) {
	id, err := strconv.ParseUint(c.Param(urlParamId), 10, 16)
	if err != nil || id == 0 {
		return cbox.InvalidID, errors.New("invalid object id '" + c.Param(urlParamId) + "'")
	}
	return cbox.ObjectID(id), nil
}

// returns the last known state of all objects
func (s *RestService) getObjects(c echo.Context) error {
	data := reprint.This(s.snapshots.All())
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func (s *RestService) getObject(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return returnBadRequest(c, err)
	}
	data, exists := s.snapshots.Get(id)
	if !exists {
		return returnNotFound(c, c.Param(urlParamId))
	}
	return c.JSONPretty(http.StatusOK, reprint.This(data), indentationChar)
}

func (s *RestService) deleteObject(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return returnBadRequest(c, err)
	}
	reply, err := s.executor.Execute(c.Request().Context(), box.Request{
		Opcode:  box.OpDeleteObject,
		Payload: box.IDPayload(id),
	})
	if err != nil {
		return returnError(c, err)
	}
	switch err = reply.Err(); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, cbox.ErrInvalidObjectID):
		return returnNotFound(c, c.Param(urlParamId))
	default:
		return returnBadRequest(c, err)
	}
}
