package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wmsdash/internal/engine"
	"wmsdash/internal/fetch"
	"wmsdash/internal/models"
	"wmsdash/internal/views"
)

func binsDocument(n int) string {
	var b strings.Builder
	b.WriteString(`{"data": {`)
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"%d": {"id": %d, "bin": "A-%02d", "qty": %d, "note": "%s",
			"bin_data": {"bin_number": "A-%02d", "itemData": [{"item": "WIDGET", "count": %d}]},
			"netsuite_response": {"status": "ok"}}`,
			i, i, i, n+1-i, strings.Repeat("x", 30), i, i)
	}
	b.WriteString("}}")
	return b.String()
}

type testServer struct {
	e        *echo.Echo
	upstream *fetch.Client
	failSync atomic.Bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}

	wms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data_bins":
			_, _ = w.Write([]byte(binsDocument(12)))
		case "/netsuite/bins":
			if ts.failSync.Load() {
				http.Error(w, "netsuite down", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(wms.Close)

	ts.upstream = fetch.New(fetch.Config{
		BaseURL:       wms.URL,
		SyncEndpoints: []string{"/netsuite/bins"},
	}, []fetch.Dataset{{
		Name:       "bins",
		Title:      "Bins",
		Endpoint:   "/data_bins",
		Descriptor: engine.Descriptor{Envelope: "data", Shape: engine.ShapeKeyed},
		Options: engine.TableOptions{
			Breakouts:  engine.NewKeySet("bin_data", "itemData"),
			JSONFields: engine.NewKeySet("netsuite_response"),
			Flatten:    true,
		},
	}})
	require.NoError(t, ts.upstream.Snapshot(context.Background(), "bins").Err)

	ts.e = echo.New()
	NewHandler(ts.upstream, views.NewRegistry(ts.upstream)).RegisterRoutes(ts.e)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) models.TablePage {
	t.Helper()
	var page models.TablePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page), rec.Body.String())
	return page
}

func (ts *testServer) openBins(t *testing.T) models.TablePage {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/tables", models.OpenTableRequest{Dataset: "bins"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodePage(t, rec)
}

func TestGetDatasetsAndDashboard(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/datasets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []models.DatasetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "keyed", infos[0].Shape)

	rec = ts.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data models.DashboardData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	require.Len(t, data.Cards, 1)
	assert.Equal(t, 12, data.Cards[0].Count)
}

func TestOpenTableAndPage(t *testing.T) {
	ts := newTestServer(t)
	page := ts.openBins(t)

	assert.NotEmpty(t, page.ID)
	assert.Equal(t, "Bins", page.Title)
	assert.Len(t, page.Rows, 10)
	assert.Equal(t, 2, page.PageCount)

	var ids []string
	for _, c := range page.Columns {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"id", "bin", "qty", "note", "bin_data", "netsuite_response"}, ids)
	assert.Equal(t, "View Bin Data", page.Rows[0][4].Text)
	assert.Equal(t, "json", page.Columns[5].Render)

	rec := ts.do(t, http.MethodGet, "/api/tables/"+page.ID+"?size=5&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	paged := decodePage(t, rec)
	assert.Equal(t, 5, paged.State.PageSize)
	assert.Equal(t, 2, paged.State.PageIndex)
	assert.Len(t, paged.Rows, 2)
}

func TestPageETag(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openBins(t).ID

	rec := ts.do(t, http.MethodGet, "/api/tables/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tag := rec.Header().Get("ETag")
	require.NotEmpty(t, tag)

	rec = ts.do(t, http.MethodGet, "/api/tables/"+id, nil, "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestStateSortAndWidths(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openBins(t).ID

	filter := "a-1"
	rec := ts.do(t, http.MethodPatch, "/api/tables/"+id+"/state", models.StatePatch{GlobalFilter: &filter})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodePage(t, rec).TotalFiltered)

	empty := ""
	ts.do(t, http.MethodPatch, "/api/tables/"+id+"/state", models.StatePatch{GlobalFilter: &empty})

	rec = ts.do(t, http.MethodPost, "/api/tables/"+id+"/sort/qty", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodePage(t, rec)
	assert.Equal(t, "asc", page.State.SortDirection)
	assert.Equal(t, "12", page.Rows[0][0].Text)

	rec = ts.do(t, http.MethodPut, "/api/tables/"+id+"/columns/bin/width", models.WidthRequest{Width: 5000})
	require.Equal(t, http.StatusOK, rec.Code)
	var w models.WidthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	assert.Equal(t, float64(engine.DefaultMaxWidth), w.Width)

	rec = ts.do(t, http.MethodPost, "/api/tables/"+id+"/columns/note/autofit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	assert.Equal(t, float64(30*engine.CellPixels+engine.AutoFitPadding), w.Width)
}

func TestErrorsMapToStatus(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openBins(t).ID

	bad := 7
	cases := []struct {
		method, path string
		body         any
		want         int
	}{
		{http.MethodGet, "/api/tables/nope", nil, http.StatusNotFound},
		{http.MethodPost, "/api/tables", models.OpenTableRequest{Dataset: "nope"}, http.StatusNotFound},
		{http.MethodPost, "/api/tables/" + id + "/sort/nope", nil, http.StatusNotFound},
		{http.MethodPatch, "/api/tables/" + id + "/state", models.StatePatch{PageSize: &bad}, http.StatusBadRequest},
		{http.MethodGet, "/api/tables/" + id + "/json/99/netsuite_response", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/tables/" + id + "/drilldowns/x", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/tables/" + id + "/drilldowns/5", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := ts.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
	}
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openBins(t).ID

	rec := ts.do(t, http.MethodGet, "/api/tables/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="bins.csv"`, rec.Header().Get(echo.HeaderContentDisposition))

	lines := strings.Split(rec.Body.String(), "\n")
	require.Len(t, lines, 13)
	assert.Equal(t, "Id,Bin,Qty,Note,Bin Data,Netsuite Response", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `1,"A-01",12,`), lines[1])

	filter := "no such bin"
	ts.do(t, http.MethodPatch, "/api/tables/"+id+"/state", models.StatePatch{GlobalFilter: &filter})
	rec = ts.do(t, http.MethodGet, "/api/tables/"+id+"/export", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDrillDownRoutes(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openBins(t).ID
	base := "/api/tables/" + id

	rec := ts.do(t, http.MethodPost, base+"/drilldowns", models.OpenDrillDownRequest{Row: 0, Column: "bin_data"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bin := decodePage(t, rec)
	assert.Equal(t, 1, bin.DrillDown)
	assert.Equal(t, "Bin Data Details", bin.Title)
	require.Len(t, bin.Rows, 1)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("%s/drilldowns/%d/drilldowns", base, bin.DrillDown),
		models.OpenDrillDownRequest{Row: 0, Column: "itemData", Title: "Items"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	items := decodePage(t, rec)
	assert.Equal(t, "Items", items.Title)
	require.Len(t, items.Rows, 1)
	assert.Equal(t, "WIDGET", items.Rows[0][0].Text)

	root := decodePage(t, ts.do(t, http.MethodGet, base, nil))
	assert.Len(t, root.DrillDowns, 2)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("%s/drilldowns/%d", base, bin.DrillDown), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("%s/drilldowns/%d", base, bin.DrillDown), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("%s/drilldowns/%d", base, items.DrillDown), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("%s/drilldowns/%d", base, items.DrillDown), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJSONCell(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openBins(t).ID

	rec := ts.do(t, http.MethodGet, "/api/tables/"+id+"/json/0/netsuite_response", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{\n  \"status\": \"ok\"\n}", rec.Body.String())
}

func TestSync(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/sync", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.failSync.Store(true)
	rec = ts.do(t, http.MethodPost, "/api/sync", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "/netsuite/bins")
}

// fakeUpstream drives the websocket deterministically.
type fakeUpstream struct {
	events  chan models.Event
	touches chan string
}

func (f *fakeUpstream) Datasets() []fetch.Dataset      { return nil }
func (f *fakeUpstream) Sources() []engine.Source       { return nil }
func (f *fakeUpstream) Sync(ctx context.Context) error { return nil }
func (f *fakeUpstream) Touch(_ context.Context, reason string) {
	f.touches <- reason
}
func (f *fakeUpstream) Subscribe() (<-chan models.Event, func()) {
	return f.events, func() {}
}

func TestEventsWebsocket(t *testing.T) {
	up := &fakeUpstream{events: make(chan models.Event, 1), touches: make(chan string, 4)}
	e := echo.New()
	NewHandler(up, nil).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	expectTouch := func(want string) {
		select {
		case got := <-up.touches:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("no %s touch", want)
		}
	}
	expectTouch(clientReconnect)

	up.events <- models.Event{Type: fetch.EventRefreshed, Dataset: "bins"}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var ev models.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, models.Event{Type: "refreshed", Dataset: "bins"}, ev)

	require.NoError(t, conn.WriteJSON(models.Event{Type: clientFocus}))
	expectTouch(clientFocus)
}
