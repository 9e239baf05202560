package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzahran/scalpbot/internal/domain"
	"github.com/mzahran/scalpbot/internal/engine"
	"github.com/mzahran/scalpbot/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubBroker struct {
	connected bool
}

func (s *stubBroker) Connected() bool { return s.connected }

func (s *stubBroker) AccountSnapshot(context.Context) (*domain.AccountSnapshot, error) {
	return &domain.AccountSnapshot{}, nil
}

func (s *stubBroker) OpenPositions(context.Context, string) ([]domain.Position, error) {
	return nil, nil
}

func (s *stubBroker) InstrumentConstraints(context.Context, string) (*domain.InstrumentConstraints, error) {
	return nil, domain.ErrUnknownSymbol
}

func (s *stubBroker) ValidateOrder(context.Context, domain.OrderRequest) (domain.Retcode, error) {
	return domain.RetcodeDone, nil
}

func (s *stubBroker) SubmitOrder(context.Context, domain.OrderRequest) (*domain.OrderResult, error) {
	return nil, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(&stubBroker{connected: true}, testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["broker_connected"])
}

func TestHealthCheckWithoutBroker(t *testing.T) {
	h := NewHealthHandler(nil, testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	body := decodeBody(t, rec)
	assert.NotContains(t, body, "broker_connected")
}

func TestBotHandlerLifecycle(t *testing.T) {
	state := service.NewBotState(false)
	h := NewBotHandler(state, testLogger())

	rec := httptest.NewRecorder()
	h.Arm(rec, httptest.NewRequest(http.MethodPost, "/api/bot/arm", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, state.Armed())

	rec = httptest.NewRecorder()
	h.Disarm(rec, httptest.NewRequest(http.MethodPost, "/api/bot/disarm",
		strings.NewReader(`{"reason":"maintenance"}`)))
	assert.False(t, state.Armed())
	body := decodeBody(t, rec)
	assert.Equal(t, "maintenance", body["reason"])

	rec = httptest.NewRecorder()
	h.Pause(rec, httptest.NewRequest(http.MethodPost, "/api/bot/pause", nil))
	assert.True(t, state.Paused())

	rec = httptest.NewRecorder()
	h.Resume(rec, httptest.NewRequest(http.MethodPost, "/api/bot/resume", nil))
	assert.False(t, state.Paused())
}

func TestBotHandlerAutoTrade(t *testing.T) {
	state := service.NewBotState(false)
	h := NewBotHandler(state, testLogger())

	rec := httptest.NewRecorder()
	h.SetAutoTrade(rec, httptest.NewRequest(http.MethodPost, "/api/bot/auto_trade",
		strings.NewReader(`{"enabled":true}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, state.AutoTrade())

	rec = httptest.NewRecorder()
	h.SetAutoTrade(rec, httptest.NewRequest(http.MethodPost, "/api/bot/auto_trade",
		strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeStore struct {
	upserts []domain.StrategySettings
	err     error
}

func (f *fakeStore) Get(context.Context, domain.StrategyKind) (domain.StrategySettings, error) {
	return domain.StrategySettings{}, domain.ErrNotFound
}

func (f *fakeStore) Upsert(_ context.Context, s domain.StrategySettings) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, s)
	return nil
}

func (f *fakeStore) List(context.Context) ([]domain.StrategySettings, error) {
	return nil, nil
}

func strategyMux(h *StrategyHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/strategies", h.List)
	mux.HandleFunc("PUT /api/strategies/{kind}", h.Update)
	return mux
}

func newEngine() *engine.Engine {
	return engine.New(nil, engine.Config{}, testLogger())
}

func TestStrategyList(t *testing.T) {
	h := NewStrategyHandler(newEngine(), nil, testLogger())

	rec := httptest.NewRecorder()
	strategyMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strategies", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Strategies []engine.StrategyStatus `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Strategies, len(domain.AllStrategyKinds))
	for _, st := range body.Strategies {
		assert.True(t, st.Enabled)
	}
}

func TestStrategyUpdate(t *testing.T) {
	eng := newEngine()
	store := &fakeStore{}
	h := NewStrategyHandler(eng, store, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/strategies/trend_crossover",
		strings.NewReader(`{"enabled":false,"overrides":{"ema_fast":5}}`))
	rec := httptest.NewRecorder()
	strategyMux(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, st := range eng.StrategyStatus() {
		if st.Kind == domain.StrategyTrendCrossover {
			assert.False(t, st.Enabled)
			assert.Equal(t, map[string]float64{"ema_fast": 5}, st.Overrides)
		}
	}

	require.Len(t, store.upserts, 1)
	assert.Equal(t, domain.StrategyTrendCrossover, store.upserts[0].Kind)
	assert.False(t, store.upserts[0].Enabled)
}

func TestStrategyUpdateUnknownKind(t *testing.T) {
	h := NewStrategyHandler(newEngine(), nil, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/strategies/martingale",
		strings.NewReader(`{"enabled":false}`))
	rec := httptest.NewRecorder()
	strategyMux(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStrategyUpdatePersistFailure(t *testing.T) {
	h := NewStrategyHandler(newEngine(), &fakeStore{err: domain.ErrNotConnected}, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/strategies/trend_crossover",
		strings.NewReader(`{"enabled":false}`))
	rec := httptest.NewRecorder()
	strategyMux(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "not persisted")
}

func TestSignalListRecentEmpty(t *testing.T) {
	h := NewSignalHandler(newEngine(), testLogger())

	rec := httptest.NewRecorder()
	h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/signals/recent", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"signals":[]}`, rec.Body.String())
}

func TestSignalEvaluateRequiresSymbol(t *testing.T) {
	h := NewSignalHandler(newEngine(), testLogger())

	rec := httptest.NewRecorder()
	h.Evaluate(rec, httptest.NewRequest(http.MethodPost, "/api/signals/evaluate",
		strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "symbol is required")
}

type fakeBlobs struct {
	infos   []domain.BlobInfo
	objects map[string]string
	listErr error

	lastPrefix string
}

func (f *fakeBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := f.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	f.lastPrefix = prefix
	return f.infos, f.listErr
}

func (f *fakeBlobs) Delete(context.Context, string) error { return nil }

func journalMux(h *JournalHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/journal", h.List)
	mux.HandleFunc("GET /api/journal/{key...}", h.Download)
	return mux
}

func TestJournalList(t *testing.T) {
	blobs := &fakeBlobs{infos: []domain.BlobInfo{{Path: "journal/signals/2026-08-31/1-0.jsonl", Size: 128}}}
	h := NewJournalHandler(blobs, "journal", testLogger())

	rec := httptest.NewRecorder()
	journalMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/journal", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "journal/", blobs.lastPrefix)
	assert.Contains(t, rec.Body.String(), "1-0.jsonl")
}

func TestJournalListStreamFilter(t *testing.T) {
	blobs := &fakeBlobs{}
	h := NewJournalHandler(blobs, "journal", testLogger())

	rec := httptest.NewRecorder()
	journalMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/journal?stream=orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "journal/orders/", blobs.lastPrefix)
	assert.JSONEq(t, `{"objects":[]}`, rec.Body.String(), "nil listing reads as empty")
}

func TestJournalListBackendError(t *testing.T) {
	h := NewJournalHandler(&fakeBlobs{listErr: domain.ErrNotConnected}, "journal", testLogger())

	rec := httptest.NewRecorder()
	journalMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/journal", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestJournalDownload(t *testing.T) {
	blobs := &fakeBlobs{objects: map[string]string{
		"journal/signals/2026-08-31/1-0.jsonl": "{\"n\":1}\n",
	}}
	h := NewJournalHandler(blobs, "journal", testLogger())

	rec := httptest.NewRecorder()
	journalMux(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/journal/journal/signals/2026-08-31/1-0.jsonl", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	assert.Equal(t, "{\"n\":1}\n", rec.Body.String())
}

func TestJournalDownloadNotFound(t *testing.T) {
	h := NewJournalHandler(&fakeBlobs{}, "journal", testLogger())

	rec := httptest.NewRecorder()
	journalMux(h).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/journal/journal/signals/missing.jsonl", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJournalDisabled(t *testing.T) {
	h := NewJournalHandler(nil, "", testLogger())

	rec := httptest.NewRecorder()
	journalMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/journal", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
