package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/cycle"
	"github.com/hupe1980/where2work/internal/roster"
	"github.com/hupe1980/where2work/internal/selection"
	"github.com/hupe1980/where2work/internal/store/memory"
)

const fixtureCSV = `Entity_Legal_Name,Entity_Type,Headquarters_Location,Estimated_Employee_Band,Estimated_Employee_Band_Code,Primary_ANZSIC_Code
Alpha Pty Ltd,Australian Private Company,Sydney,1–5 Employees,B1,K6411 (Financial Services)
Bravo Pty Ltd,Australian Private Company,Perth,1–5 Employees,B1,M6962 (Consulting)
Charlie Ltd,Public Company,Sydney,6–19 Employees,B2,J5420
`

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	classifier := band.NewClassifier(nil)

	ds, err := roster.Parse(strings.NewReader(fixtureCSV), "fixture.csv", classifier)
	require.NoError(t, err)

	store := memory.New()
	svc := cycle.NewService(cycle.NewEngine(ds, classifier, nil), store)

	return New(svc, Options{Registry: prometheus.NewRegistry()}), store
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCookieName {
			return c
		}
	}

	t.Fatalf("no %s cookie issued", DefaultCookieName)

	return nil
}

// ---------------------------------------------------------------------------
// Health and metrics
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Server"), "where2work/")
}

func TestHealthz_NoDataset(t *testing.T) {
	svc := cycle.NewService(cycle.NewEngine(nil, nil, nil), memory.New())
	s := New(svc, Options{})

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/render", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	_ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/render", nil))

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "where2work_dataset_entities 3")
	assert.Contains(t, body, `where2work_render_duration_seconds_count{kind="render"} 1`)
	assert.Contains(t, body, `route="/api/render"`)
}

// ---------------------------------------------------------------------------
// Render cycle
// ---------------------------------------------------------------------------

func TestRender_IssuesSessionCookie(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/render", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.NotEmpty(t, c.Value)

	var r cycle.Render
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, 3, r.Pool.Count)
	assert.True(t, r.Shortlist.Empty)
	assert.Equal(t, cycle.ShortlistEmptyMessage, r.Shortlist.EmptyMessage)
}

func TestRender_Filters(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/render?location=Sydney&band=6%E2%80%9319+Employees", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var r cycle.Render
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, 1, r.Filtered)
	assert.Equal(t, "Charlie Ltd", r.Pool.Markers[0].Tooltip.Company)
}

func TestClick_MovesEntityAndPersists(t *testing.T) {
	s, store := newTestServer(t)

	first := do(t, s, httptest.NewRequest(http.MethodGet, "/api/render", nil))
	cookie := sessionCookie(t, first)

	req := httptest.NewRequest(http.MethodPost, "/api/click", strings.NewReader(`{"chart":"pool","index":0}`))
	req.AddCookie(cookie)

	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ClickResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, selection.OutcomeAdded, resp.Outcome)
	assert.Equal(t, "Alpha Pty Ltd", resp.Entity)
	assert.Equal(t, 1, resp.Render.Shortlist.Count)
	assert.Equal(t, 2, resp.Render.Pool.Count)

	saved, err := store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha Pty Ltd"}, saved.Names())

	// Shortlist endpoint reflects the same session.
	req = httptest.NewRequest(http.MethodGet, "/api/shortlist", nil)
	req.AddCookie(cookie)

	rec = do(t, s, req)
	assert.JSONEq(t, `["Alpha Pty Ltd"]`, rec.Body.String())

	// Clearing empties it again.
	req = httptest.NewRequest(http.MethodPost, "/api/shortlist/clear", nil)
	req.AddCookie(cookie)

	rec = do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	saved, err = store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.Len())
}

func TestClick_StaleIndexIgnored(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/click", strings.NewReader(`{"chart":"shortlist","index":4}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClickResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, selection.OutcomeIgnored, resp.Outcome)
	assert.Empty(t, resp.Entity)
}

func TestClick_BadRequests(t *testing.T) {
	s, store := newTestServer(t)
	cookie := sessionCookie(t, do(t, s, httptest.NewRequest(http.MethodGet, "/api/render", nil)))

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"chart":`},
		{"unknown chart", `{"chart":"legend","index":0}`},
		{"missing index", `{"chart":"pool"}`},
		{"null index", `{"chart":"pool","index":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/click", strings.NewReader(tt.body))
			req.AddCookie(cookie)

			rec := do(t, s, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	saved, err := store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.Len(), "rejected clicks must not change the shortlist")
}

func TestClick_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/click", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInvalidCookieIsReplaced(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/render", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "not-a-uuid"})

	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "not-a-uuid", sessionCookie(t, rec).Value)
}

// ---------------------------------------------------------------------------
// Options and charts
// ---------------------------------------------------------------------------

func TestOptions(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var opts cycle.Options
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Equal(t, []string{"Perth", "Sydney"}, opts.Locations)
	assert.Equal(t, []string(band.DefaultOrder()), opts.Bands)
}

func TestChartSVG(t *testing.T) {
	s, _ := newTestServer(t)

	for _, chart := range []string{"pool", "shortlist"} {
		t.Run(chart, func(t *testing.T) {
			rec := do(t, s, httptest.NewRequest(http.MethodGet, "/chart/"+chart+".svg", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
			assert.True(t, bytes.HasPrefix(bytes.TrimSpace(rec.Body.Bytes()), []byte("<svg")))
		})
	}

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/chart/legend.svg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.ListenAndServe(ctx, "127.0.0.1:0"))
}
