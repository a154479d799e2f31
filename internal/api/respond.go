package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/labstack/echo/v4"

	"wmsdash/internal/engine"
	"wmsdash/internal/fetch"
	"wmsdash/internal/views"
)

// httpError maps domain errors onto HTTP status codes. Unknown errors pass
// through to echo's default handler as 500s.
func httpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, views.ErrTableNotFound),
		errors.Is(err, engine.ErrContextNotFound),
		errors.Is(err, engine.ErrUnknownColumn),
		errors.Is(err, fetch.ErrUnknownDataset):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNotSortable),
		errors.Is(err, engine.ErrNotFilterable),
		errors.Is(err, engine.ErrInvalidPageSize),
		errors.Is(err, engine.ErrRowOutOfRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func etag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
}

// respondBlob writes body with an ETag, or 304 when the client has it.
func respondBlob(c echo.Context, contentType string, body []byte) error {
	tag := etag(body)
	c.Response().Header().Set("ETag", tag)
	if c.Request().Header.Get("If-None-Match") == tag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, contentType, body)
}

func respondJSON(c echo.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return respondBlob(c, echo.MIMEApplicationJSON, body)
}
