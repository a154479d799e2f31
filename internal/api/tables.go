package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"wmsdash/internal/engine"
	"wmsdash/internal/models"
	"wmsdash/internal/views"
)

// target resolves :id and the optional :ctx of a request.
func target(c echo.Context) (string, int, error) {
	id := c.Param("id")
	raw := c.Param("ctx")
	if raw == "" {
		return id, 0, nil
	}
	ctx, err := strconv.Atoi(raw)
	if err != nil || ctx <= 0 {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "invalid drill-down id")
	}
	return id, ctx, nil
}

// with runs fn on the addressed table and maps engine errors to HTTP ones.
func (h *Handler) with(c echo.Context, fn func(views.Target) error) error {
	id, ctx, err := target(c)
	if err != nil {
		return err
	}
	return httpError(h.tables.Do(c.Request().Context(), id, ctx, fn))
}

// ?page= and ?size= move the view before it is rendered
func getPaginationParams(c echo.Context) models.StatePatch {
	var p models.StatePatch
	if size, err := strconv.Atoi(c.QueryParam("size")); err == nil {
		p.PageSize = &size
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page >= 0 {
		p.PageIndex = &page
	}
	return p
}

func (h *Handler) OpenTable(c echo.Context) error {
	var req models.OpenTableRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in, err := h.tables.Open(c.Request().Context(), req.Dataset)
	if err != nil {
		return httpError(err)
	}

	var page models.TablePage
	err = h.tables.Do(c.Request().Context(), in.ID, 0, func(t views.Target) error {
		page = views.Render(t)
		return nil
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, page)
}

func (h *Handler) CloseTable(c echo.Context) error {
	if err := h.tables.Close(c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetPage(c echo.Context) error {
	var page models.TablePage
	err := h.with(c, func(t views.Target) error {
		if err := views.Apply(t.Table, getPaginationParams(c)); err != nil {
			return err
		}
		page = views.Render(t)
		return nil
	})
	if err != nil {
		return err
	}
	return respondJSON(c, page)
}

func (h *Handler) PatchState(c echo.Context) error {
	var patch models.StatePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var page models.TablePage
	err := h.with(c, func(t views.Target) error {
		if err := views.Apply(t.Table, patch); err != nil {
			return err
		}
		page = views.Render(t)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// none → asc → desc → none
func (h *Handler) ToggleSort(c echo.Context) error {
	var page models.TablePage
	err := h.with(c, func(t views.Target) error {
		if err := t.Table.ToggleSort(c.Param("column")); err != nil {
			return err
		}
		page = views.Render(t)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) ResizeColumn(c echo.Context) error {
	var req models.WidthRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	column := c.Param("column")
	var width float64
	err := h.with(c, func(t views.Target) error {
		var err error
		width, err = t.Table.ResizeColumn(column, req.Width)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.WidthResponse{Column: column, Width: width})
}

func (h *Handler) AutoFitColumn(c echo.Context) error {
	column := c.Param("column")
	var width float64
	err := h.with(c, func(t views.Target) error {
		var err error
		width, err = t.Table.AutoFitColumn(column, h.measurer)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.WidthResponse{Column: column, Width: width})
}

// full filtered and sorted rows as CSV, 204 when there are none
func (h *Handler) Export(c echo.Context) error {
	var dl engine.Download
	err := h.with(c, func(t views.Target) error {
		var err error
		dl, err = t.Table.Export()
		return err
	})
	if errors.Is(err, engine.ErrNoRows) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return err
	}

	recordExport(c.Request().Context(), len(dl.Content))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", dl.Filename))
	return respondBlob(c, dl.MimeType, []byte(dl.Content))
}

func (h *Handler) OpenDrillDown(c echo.Context) error {
	var req models.OpenDrillDownRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var page models.TablePage
	err := h.with(c, func(t views.Target) error {
		dd, err := t.Navigator().OpenCell(t.Table, req.Row, req.Column, req.Title)
		if err != nil {
			return err
		}
		t.Table = dd.Table
		t.DrillDown = dd
		page = views.Render(t)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, page)
}

func (h *Handler) CloseDrillDown(c echo.Context) error {
	id, ctx, err := target(c)
	if err != nil {
		return err
	}
	err = h.tables.Do(c.Request().Context(), id, 0, func(t views.Target) error {
		return t.Navigator().Close(ctx)
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// pretty JSON behind a cell of the current page
func (h *Handler) GetJSON(c echo.Context) error {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid row")
	}

	var raw engine.Value
	err = h.with(c, func(t views.Target) error {
		var err error
		_, raw, err = t.Table.Cell(row, c.Param("column"))
		return err
	})
	if err != nil {
		return err
	}
	return respondBlob(c, echo.MIMEApplicationJSON, []byte(raw.Indent()))
}
