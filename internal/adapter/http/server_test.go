package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/pm-density-service/internal/account"
	"github.com/couchcryptid/pm-density-service/internal/adapter/credentials"
	"github.com/couchcryptid/pm-density-service/internal/adapter/csvsource"
	httpadapter "github.com/couchcryptid/pm-density-service/internal/adapter/http"
	"github.com/couchcryptid/pm-density-service/internal/dashboard"
	"github.com/couchcryptid/pm-density-service/internal/domain"
	"github.com/couchcryptid/pm-density-service/internal/observability"
	"github.com/couchcryptid/pm-density-service/internal/pipeline"
	"github.com/couchcryptid/pm-density-service/internal/store"
)

const (
	testUser = "alice"
	testPass = "secret"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type testEnv struct {
	srv   *httpadapter.Server
	store *store.Store
}

func newTestEnv(t *testing.T, readyErr error, initial []domain.Reading) testEnv {
	t.Helper()
	st := store.New()
	st.BulkLoad(initial)
	m := observability.NewMetricsForTesting()
	cols := domain.ColumnMap{TimestampColumn: "ts", DensityColumn: "pm25"}
	dash := dashboard.NewService(
		pipeline.NewQuerier(st, 8, m),
		pipeline.NewIngester(csvsource.Parser{}, st, nil, slog.Default(), m),
		cols, slog.Default(), m,
	)

	accounts, err := account.NewService(credentials.NewFileStore(filepath.Join(t.TempDir(), "users.txt")), slog.Default())
	require.NoError(t, err)
	require.NoError(t, accounts.CreateAccount(testUser, testPass))

	srv := httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, dash, accounts, 1024, slog.Default())
	return testEnv{srv: srv, store: st}
}

func (e testEnv) do(t *testing.T, method, target string, body []byte, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if auth {
		req.SetBasicAuth(testUser, testPass)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/healthz", nil, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/readyz", nil, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	env := newTestEnv(t, fmt.Errorf("not ready yet"), nil)

	rec := env.do(t, http.MethodGet, "/readyz", nil, false)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestValidateEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/dates/2000/2/29/validate", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["valid"])

	rec = env.do(t, http.MethodGet, "/api/v1/dates/1900/2/29/validate", nil, false)
	assert.Equal(t, false, decode(t, rec)["valid"])

	rec = env.do(t, http.MethodGet, "/api/v1/dates/abc/2/29/validate", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/dates/2023/6/15/summary", nil, false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestSummaryEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, []domain.Reading{
		{Year: 2023, Month: 6, Day: 15, Hour: 1, Density: 30},
		{Year: 2023, Month: 6, Day: 15, Hour: 0, Density: 10},
		{Year: 2023, Month: 6, Day: 15, Hour: 2, Density: math.NaN()},
	})

	rec := env.do(t, http.MethodGet, "/api/v1/dates/2023/6/15/summary", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "2023-06-15", body["date"])
	assert.Equal(t, false, body["no_data"])
	assert.InDelta(t, 30, body["max_density"], 0)
	assert.InDelta(t, 1, body["max_hour"], 0)
	assert.InDelta(t, 10, body["min_density"], 0)
	assert.InDelta(t, 20, body["mean_density"], 1e-9)

	series := body["series"].([]any)
	require.Len(t, series, 3)
	assert.InDelta(t, 0, series[0].(map[string]any)["hour"], 0)
	assert.Nil(t, series[2].(map[string]any)["density"])
}

func TestSummaryAllMissingDensityRendersNull(t *testing.T) {
	env := newTestEnv(t, nil, []domain.Reading{
		{Year: 2023, Month: 6, Day: 16, Hour: 0, Density: math.NaN()},
		{Year: 2023, Month: 6, Day: 16, Hour: 1, Density: math.NaN()},
	})

	rec := env.do(t, http.MethodGet, "/api/v1/dates/2023/6/16/summary", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.InDelta(t, 2, body["count"], 0)
	for _, key := range []string{"max_density", "max_hour", "min_density", "min_hour", "mean_density"} {
		assert.Nil(t, body[key], key)
	}
}

func TestSummaryNoData(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/dates/2024/1/1/summary", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["no_data"])
	assert.Nil(t, body["max_density"])
	assert.Empty(t, body["series"])
}

func TestSummaryInvalidDate(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/dates/2023/2/30/summary", nil, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadForDate(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	csv := []byte("ts,pm25\n2024-01-01 03:00,17\n2024-01-02 00:00,5\n")

	rec := env.do(t, http.MethodPost, "/api/v1/dates/2024/1/1/uploads?encoding=utf-8", csv, true)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["added"], 2)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, false, summary["no_data"])
	assert.InDelta(t, 17, summary["max_density"], 0)
	assert.Equal(t, 2, env.store.Len())
}

func TestUploadMalformed(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	csv := []byte("ts,pm25\n2024-01-01 03:00,17\nnope,5\n")

	rec := env.do(t, http.MethodPost, "/api/v1/uploads?encoding=utf-8", csv, true)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, env.store.Len())
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	csv := []byte("ts,pm25\n" + strings.Repeat("2024-01-01 03:00,17\n", 100))

	rec := env.do(t, http.MethodPost, "/api/v1/uploads?encoding=utf-8", csv, true)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, env.store.Len())
}

func TestAccountsAndSessions(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/accounts", []byte(`{"username":"bob","password":"pw"}`), false)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/accounts", []byte(`{"username":"bob","password":"pw"}`), false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/accounts", []byte(`{"username":"b,ob","password":"pw"}`), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions", []byte(`{"username":"bob","password":"pw"}`), false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions", []byte(`{"username":"bob","password":"nope"}`), false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions", []byte(`not json`), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
