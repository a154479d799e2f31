package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"wmsdash/internal/engine"
	"wmsdash/internal/fetch"
	"wmsdash/internal/models"
	"wmsdash/internal/views"
)

// Upstream is the part of the fetch client the handlers use.
type Upstream interface {
	Datasets() []fetch.Dataset
	Sources() []engine.Source
	Sync(ctx context.Context) error
	Touch(ctx context.Context, reason string)
	Subscribe() (<-chan models.Event, func())
}

type Handler struct {
	upstream Upstream
	tables   *views.Registry
	measurer engine.Measurer
}

func NewHandler(upstream Upstream, tables *views.Registry) *Handler {
	return &Handler{
		upstream: upstream,
		tables:   tables,
		measurer: engine.RuneWidthMeasurer{PixelsPerCell: engine.CellPixels},
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/datasets", h.GetDatasets)
	api.GET("/dashboard", h.GetDashboard)
	api.POST("/sync", h.PostSync)
	api.GET("/events", h.Events)

	api.POST("/tables", h.OpenTable)
	api.DELETE("/tables/:id", h.CloseTable)
	api.DELETE("/tables/:id/drilldowns/:ctx", h.CloseDrillDown)

	// a drill-down context supports everything its root table does
	for _, prefix := range []string{"/tables/:id", "/tables/:id/drilldowns/:ctx"} {
		t := api.Group(prefix)
		t.GET("", h.GetPage)
		t.PATCH("/state", h.PatchState)
		t.POST("/sort/:column", h.ToggleSort)
		t.PUT("/columns/:column/width", h.ResizeColumn)
		t.POST("/columns/:column/autofit", h.AutoFitColumn)
		t.GET("/export", h.Export)
		t.GET("/json/:row/:column", h.GetJSON)
		t.POST("/drilldowns", h.OpenDrillDown)
	}
}

// --- HANDLERS ---
func (h *Handler) GetDatasets(c echo.Context) error {
	datasets := h.upstream.Datasets()
	out := make([]models.DatasetInfo, 0, len(datasets))
	for _, ds := range datasets {
		out = append(out, models.DatasetInfo{
			Name:     ds.Name,
			Title:    ds.Title,
			Endpoint: ds.Endpoint,
			Shape:    string(ds.Descriptor.Shape),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// record counts of every dataset
func (h *Handler) GetDashboard(c echo.Context) error {
	data := engine.Summarize(c.Request().Context(), h.upstream.Sources())
	return respondJSON(c, data)
}

// NetSuite sync
func (h *Handler) PostSync(c echo.Context) error {
	if err := h.upstream.Sync(c.Request().Context()); err != nil {
		slog.Error("sync failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, models.Event{Type: fetch.EventSynced})
}
