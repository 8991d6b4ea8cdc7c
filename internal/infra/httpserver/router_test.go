package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/acoustic-health/internal/application"
	appanalysis "github.com/bryanwahyu/acoustic-health/internal/application/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/application/history"
	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/infra/cache"
	"github.com/bryanwahyu/acoustic-health/internal/infra/db/memory"
	"github.com/bryanwahyu/acoustic-health/internal/middleware"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func (s *memStore) Put(_ context.Context, path string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[path] = data
	return nil
}

func (s *memStore) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[path], nil
}

type scoreClassifier struct {
	score int
	err   error
}

func (c *scoreClassifier) Classify(context.Context, domain.ClassifyRequest) (domain.ClassificationResult, error) {
	if c.err != nil {
		return domain.ClassificationResult{}, c.err
	}
	return domain.ClassificationResult{HealthScore: c.score, Confidence: 90.04}, nil
}

type testServer struct {
	handler    http.Handler
	store      *memStore
	classifier *scoreClassifier
	svc        *appanalysis.Service
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := &memStore{data: map[string][]byte{}}
	cls := &scoreClassifier{score: 85}
	repo := cache.NewSnapshotRepository(memory.NewRecordRepository(), time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &appanalysis.Service{
		Repo:       repo,
		Artifacts:  store,
		Classifier: cls,
		Failures:   memory.NewFailureRepository(),
		Clock:      application.SystemClock{},
		Logger:     logger,
	}
	opts.Logger = logger
	return &testServer{
		handler:    NewRouter(svc, history.NewService(repo), opts),
		store:      store,
		classifier: cls,
		svc:        svc,
	}
}

func uploadRequest(t *testing.T, user, machine, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("machine_type", machine))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/"+user+"/analyses", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAnalyzeEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Options{})

	rec := s.do(uploadRequest(t, "plant-7", "compressor", "comp.wav", []byte("RIFF")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Result domain.ResultView `json:"result"`
		Record domain.Record     `json:"record"`
		Gauge  struct {
			NeedleAngle float64 `json:"needle_angle"`
		} `json:"gauge"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 85, resp.Result.HealthScore)
	assert.Equal(t, domain.RiskHealthy, resp.Result.RiskLevel)
	assert.Equal(t, 90.0, resp.Result.Confidence)
	assert.Equal(t, domain.MachineCompressor, resp.Record.MachineType)
	assert.True(t, strings.HasPrefix(resp.Record.AudioPath, "plant-7/"))
	assert.True(t, strings.HasSuffix(resp.Record.AudioPath, "_comp.wav"))
	assert.InDelta(t, 63.0, resp.Gauge.NeedleAngle, 1e-9)

	list := s.do(httptest.NewRequest(http.MethodGet, "/v1/plant-7/analyses", nil))
	require.Equal(t, http.StatusOK, list.Code)
	var records []domain.Record
	decode(t, list, &records)
	require.Len(t, records, 1)
	assert.Equal(t, resp.Record.ID, records[0].ID)
}

func TestAnalyzeEndpoint_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, Options{})
		rec := s.do(uploadRequest(t, "plant-7", "Pump", "", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, s.store.data)
	})

	t.Run("unknown machine type", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, Options{})
		rec := s.do(uploadRequest(t, "plant-7", "Blender", "a.wav", []byte("x")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "machine_type")
		assert.Empty(t, s.store.data)
	})

	t.Run("not multipart", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, Options{})
		req := httptest.NewRequest(http.MethodPost, "/v1/plant-7/analyses", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusBadRequest, s.do(req).Code)
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, Options{MaxUploadBytes: 1024})
		rec := s.do(uploadRequest(t, "plant-7", "Pump", "big.wav", bytes.Repeat([]byte{1}, 4096)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, s.store.data)
	})

	t.Run("store down", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, Options{})
		s.store.err = errors.New("unreachable")
		rec := s.do(uploadRequest(t, "plant-7", "Pump", "a.wav", []byte("x")))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("classifier down", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, Options{})
		s.classifier.err = errors.New("model offline")
		rec := s.do(uploadRequest(t, "plant-7", "Pump", "a.wav", []byte("x")))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		orphans := s.do(httptest.NewRequest(http.MethodGet, "/v1/plant-7/failures", nil))
		require.Equal(t, http.StatusOK, orphans.Code)
		assert.Contains(t, orphans.Body.String(), `"phase":"classify"`)
	})

	t.Run("classifier quota", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, Options{})
		s.classifier.err = fmt.Errorf("%w: slow down", domain.ErrQuotaExceeded)
		rec := s.do(uploadRequest(t, "plant-7", "Pump", "a.wav", []byte("x")))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

type brokenRepo struct{}

func (brokenRepo) Insert(context.Context, *domain.Record) (domain.RecordID, error) {
	return "", errors.New("disk full")
}

func (brokenRepo) ListByUser(context.Context, string) ([]*domain.Record, error) { return nil, nil }

func TestAnalyzeEndpoint_ResultLost(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Options{})
	s.svc.Repo = brokenRepo{}

	rec := s.do(uploadRequest(t, "plant-7", "Pump", "a.wav", []byte("x")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		ResultLost bool                        `json:"result_lost"`
		Result     domain.ClassificationResult `json:"result"`
	}
	decode(t, rec, &body)
	assert.True(t, body.ResultLost)
	assert.Equal(t, 85, body.Result.HealthScore)
}

func TestHistoryEndpoint_Filters(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Options{})
	for _, c := range []struct {
		score   int
		machine string
	}{{85, "Compressor"}, {55, "Pump"}, {25, "Fan"}} {
		s.classifier.score = c.score
		rec := s.do(uploadRequest(t, "plant-7", c.machine, "a.wav", []byte("x")))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	tests := []struct {
		query string
		code  int
		want  []domain.MachineType
	}{
		{"?q=pump&risk=all", http.StatusOK, []domain.MachineType{domain.MachinePump}},
		{"?risk=critical", http.StatusOK, []domain.MachineType{domain.MachineFan}},
		{"?q=PUMP&risk=healthy", http.StatusOK, []domain.MachineType{}},
		{"?risk=broken", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/plant-7/analyses"+tt.query, nil))
		require.Equal(t, tt.code, rec.Code, tt.query)
		if tt.code != http.StatusOK {
			continue
		}
		var records []domain.Record
		decode(t, rec, &records)
		got := make([]domain.MachineType, 0, len(records))
		for _, r := range records {
			got = append(got, r.MachineType)
		}
		assert.Equal(t, tt.want, got, tt.query)
	}

	summary := s.do(httptest.NewRequest(http.MethodGet, "/v1/plant-7/summary", nil))
	require.Equal(t, http.StatusOK, summary.Code)
	var sum domain.Summary
	decode(t, summary, &sum)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, domain.RiskWarning, sum.OverallRisk)

	trend := s.do(httptest.NewRequest(http.MethodGet, "/v1/plant-7/trend?days=3", nil))
	require.Equal(t, http.StatusOK, trend.Code)
	var points []domain.TrendPoint
	decode(t, trend, &points)
	assert.Len(t, points, 3)
}

func TestGaugeAndMachineTypes(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Options{})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/gauge?score=55&size=100", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var g struct {
		Tier        domain.RiskLevel `json:"tier"`
		NeedleAngle float64          `json:"needle_angle"`
		Radius      float64          `json:"radius"`
	}
	decode(t, rec, &g)
	assert.Equal(t, domain.RiskWarning, g.Tier)
	assert.InDelta(t, 9.0, g.NeedleAngle, 1e-9)
	assert.InDelta(t, 38.0, g.Radius, 1e-9)

	assert.Equal(t, http.StatusBadRequest, s.do(httptest.NewRequest(http.MethodGet, "/v1/gauge?score=abc", nil)).Code)

	types := s.do(httptest.NewRequest(http.MethodGet, "/v1/machine-types", nil))
	require.Equal(t, http.StatusOK, types.Code)
	var names []string
	decode(t, types, &names)
	assert.Contains(t, names, "Conveyor Belt")
	assert.Len(t, names, 6)
}

func TestAuthBindsKeyToUser(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Options{APIKeys: map[string]string{"plant-7": "k7"}})

	get := func(path, key string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
		return s.do(req).Code
	}

	assert.Equal(t, http.StatusUnauthorized, get("/v1/plant-7/analyses", ""))
	assert.Equal(t, http.StatusUnauthorized, get("/v1/plant-7/analyses", "wrong"))
	assert.Equal(t, http.StatusForbidden, get("/v1/plant-9/analyses", "k7"))
	assert.Equal(t, http.StatusOK, get("/v1/plant-7/analyses", "k7"))
	assert.Equal(t, http.StatusOK, get("/live", ""))
}

func TestInvalidUserID(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Options{})
	rec := s.do(httptest.NewRequest(http.MethodGet, "/v1/bad%20user/analyses", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := newTestServer(t, Options{RateLimiter: middleware.NewRateLimiter(ctx, 2, 0)})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, s.do(httptest.NewRequest(http.MethodGet, "/v1/plant-7/summary", nil)).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/v1/plant-9/summary", nil)).Code)
}

func TestProbesAndMetrics(t *testing.T) {
	t.Parallel()
	metrics, err := middleware.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	s := newTestServer(t, Options{
		Metrics: metrics,
		HealthCheckers: map[string]middleware.HealthChecker{
			"storage": middleware.CheckFunc(func(context.Context) error { return nil }),
		},
	})
	s.svc.Metrics = metrics

	require.Equal(t, http.StatusCreated, s.do(uploadRequest(t, "plant-7", "Pump", "a.wav", []byte("x"))).Code)

	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `analyses_total{risk_level="healthy"} 1`)
	assert.Contains(t, body, `http_requests_total{code="201",route="/v1/{user}/analyses"} 1`)
}
