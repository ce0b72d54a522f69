package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/southtrip/caravel/internal/config"
	directdebitdomain "github.com/southtrip/caravel/internal/directdebit/domain"
)

var serverTestDBSeq atomic.Int64

type stubDirectDebit struct {
	createFn   func(ctx context.Context, req directdebitdomain.CreatePresentmentRequest) (*directdebitdomain.BatchSummary, error)
	importFn   func(ctx context.Context, req directdebitdomain.ImportRequest) (*directdebitdomain.ImportResult, error)
	listFn     func(ctx context.Context, req directdebitdomain.ListBatchesRequest) (directdebitdomain.ListBatchesResponse, error)
	downloadFn func(ctx context.Context, batchID string) (*directdebitdomain.BatchFile, error)
}

var _ directdebitdomain.Service = (*stubDirectDebit)(nil)

func (s *stubDirectDebit) CreatePresentmentBatch(ctx context.Context, req directdebitdomain.CreatePresentmentRequest) (*directdebitdomain.BatchSummary, error) {
	if s.createFn == nil {
		return &directdebitdomain.BatchSummary{}, nil
	}
	return s.createFn(ctx, req)
}

func (s *stubDirectDebit) ImportResponseBatch(ctx context.Context, req directdebitdomain.ImportRequest) (*directdebitdomain.ImportResult, error) {
	if s.importFn == nil {
		return &directdebitdomain.ImportResult{}, nil
	}
	return s.importFn(ctx, req)
}

func (s *stubDirectDebit) ListBatches(ctx context.Context, req directdebitdomain.ListBatchesRequest) (directdebitdomain.ListBatchesResponse, error) {
	if s.listFn == nil {
		return directdebitdomain.ListBatchesResponse{}, nil
	}
	return s.listFn(ctx, req)
}

func (s *stubDirectDebit) DownloadBatchFile(ctx context.Context, batchID string) (*directdebitdomain.BatchFile, error) {
	if s.downloadFn == nil {
		return &directdebitdomain.BatchFile{}, nil
	}
	return s.downloadFn(ctx, batchID)
}

func newTestServer(t *testing.T, svc directdebitdomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", serverTestDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	engine := gin.New()
	engine.Use(requestAttribution())

	srv := &Server{
		cfg:            config.Config{Environment: "test"},
		log:            zap.NewNop(),
		db:             db,
		engine:         engine,
		directDebitSvc: svc,
		importLimiter:  newRateLimiter(importRateLimit, importRateWindow),
	}
	srv.RegisterAPIRoutes()
	return srv
}

func performRequest(srv *Server, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	return rec
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var envelope errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return envelope
}

func multipartBody(t *testing.T, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, writer.FormDataContentType()
}

func TestCreateDirectDebitBatchHandler(t *testing.T) {
	var captured directdebitdomain.CreatePresentmentRequest
	svc := &stubDirectDebit{
		createFn: func(_ context.Context, req directdebitdomain.CreatePresentmentRequest) (*directdebitdomain.BatchSummary, error) {
			captured = req
			return &directdebitdomain.BatchSummary{
				BatchID:      42,
				Direction:    directdebitdomain.DirectionOutbound,
				Status:       directdebitdomain.BatchStatusReady,
				BusinessDate: "2025-01-08",
				TotalRows:    2,
			}, nil
		},
	}
	srv := newTestServer(t, svc)

	body := strings.NewReader(`{"business_date": "2025-01-08"}`)
	rec := performRequest(srv, http.MethodPost, "/api/direct-debit/batches", body, map[string]string{
		"Content-Type": "application/json",
		"X-Actor-Id":   "ops-7",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if captured.BusinessDate != "2025-01-08" {
		t.Errorf("business date = %q", captured.BusinessDate)
	}
	if captured.ActorUserID != "ops-7" {
		t.Errorf("actor = %q, want ops-7 from header", captured.ActorUserID)
	}

	var summary directdebitdomain.BatchSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if summary.BatchID != 42 || summary.TotalRows != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestCreateDirectDebitBatchHandlerBodyActorWins(t *testing.T) {
	var captured directdebitdomain.CreatePresentmentRequest
	svc := &stubDirectDebit{
		createFn: func(_ context.Context, req directdebitdomain.CreatePresentmentRequest) (*directdebitdomain.BatchSummary, error) {
			captured = req
			return &directdebitdomain.BatchSummary{}, nil
		},
	}
	srv := newTestServer(t, svc)

	body := strings.NewReader(`{"business_date": "2025-01-08", "actor_user_id": "ops-override"}`)
	rec := performRequest(srv, http.MethodPost, "/api/direct-debit/batches", body, map[string]string{
		"Content-Type": "application/json",
		"X-Actor-Id":   "ops-7",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if captured.ActorUserID != "ops-override" {
		t.Errorf("actor = %q, want body value", captured.ActorUserID)
	}
}

func TestCreateDirectDebitBatchHandlerValidation(t *testing.T) {
	srv := newTestServer(t, &stubDirectDebit{})

	rec := performRequest(srv, http.MethodPost, "/api/direct-debit/batches", strings.NewReader(`{}`), map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	envelope := decodeError(t, rec)
	if envelope.Error.Code != "missing_business_date" || envelope.Error.Field != "business_date" {
		t.Errorf("error = %+v", envelope.Error)
	}

	rec = performRequest(srv, http.MethodPost, "/api/direct-debit/batches", strings.NewReader(`{`), map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: status = %d", rec.Code)
	}
	if decodeError(t, rec).Error.Code != "invalid_request" {
		t.Errorf("malformed json: error = %+v", decodeError(t, rec).Error)
	}
}

func TestImportDirectDebitResponsesMultipart(t *testing.T) {
	var captured directdebitdomain.ImportRequest
	svc := &stubDirectDebit{
		importFn: func(_ context.Context, req directdebitdomain.ImportRequest) (*directdebitdomain.ImportResult, error) {
			captured = req
			return &directdebitdomain.ImportResult{
				InboundBatchID: 77,
				Summary:        directdebitdomain.ImportSummary{MatchedRows: 1, Paid: 1},
			}, nil
		},
	}
	srv := newTestServer(t, svc)

	payload := []byte("external_reference,result,amount_ars,paid_reference,rejection_code,rejection_reason\nDD-1,PAID,10.00,R,,\n")
	body, contentType := multipartBody(t, "respuesta.csv", payload)
	rec := performRequest(srv, http.MethodPost, "/api/direct-debit/batches/42/responses", body, map[string]string{
		"Content-Type": contentType,
		"X-Actor-Id":   "ops-2",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if captured.OutboundBatchID != "42" {
		t.Errorf("batch id = %q", captured.OutboundBatchID)
	}
	if captured.FileName != "respuesta.csv" {
		t.Errorf("file name = %q", captured.FileName)
	}
	if !bytes.Equal(captured.Data, payload) {
		t.Error("uploaded bytes did not reach the service intact")
	}
	if captured.ActorUserID != "ops-2" {
		t.Errorf("actor = %q", captured.ActorUserID)
	}

	var result directdebitdomain.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.InboundBatchID != 77 || result.Summary.Paid != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestImportDirectDebitResponsesRawBody(t *testing.T) {
	var captured directdebitdomain.ImportRequest
	svc := &stubDirectDebit{
		importFn: func(_ context.Context, req directdebitdomain.ImportRequest) (*directdebitdomain.ImportResult, error) {
			captured = req
			return &directdebitdomain.ImportResult{}, nil
		},
	}
	srv := newTestServer(t, svc)

	payload := []byte("raw response bytes")
	rec := performRequest(srv, http.MethodPost, "/api/direct-debit/batches/42/responses", bytes.NewReader(payload), map[string]string{
		"Content-Type": "text/csv",
		"X-File-Name":  "manual-upload.csv",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(captured.Data, payload) {
		t.Error("raw body did not reach the service intact")
	}
	if captured.FileName != "manual-upload.csv" {
		t.Errorf("file name = %q", captured.FileName)
	}
}

func TestImportDirectDebitResponsesRateLimited(t *testing.T) {
	srv := newTestServer(t, &stubDirectDebit{})
	srv.importLimiter = newRateLimiter(1, time.Minute)

	body := strings.NewReader("data")
	first := performRequest(srv, http.MethodPost, "/api/direct-debit/batches/42/responses", body, map[string]string{"Content-Type": "text/csv"})
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}

	second := performRequest(srv, http.MethodPost, "/api/direct-debit/batches/42/responses", strings.NewReader("data"), map[string]string{"Content-Type": "text/csv"})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if decodeError(t, second).Error.Code != "rate_limited" {
		t.Errorf("error = %+v", decodeError(t, second).Error)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"batch not found", directdebitdomain.ErrBatchNotFound, http.StatusNotFound, "batch_not_found"},
		{"not outbound", directdebitdomain.ErrNotOutboundBatch, http.StatusConflict, "not_outbound_batch"},
		{"empty file", directdebitdomain.ErrEmptyFile, http.StatusBadRequest, "empty_file"},
		{"invalid id", fmt.Errorf("%w: abc", directdebitdomain.ErrInvalidBatchID), http.StatusBadRequest, "invalid_batch_id"},
		{"adapter missing", directdebitdomain.ErrAdapterNotFound, http.StatusUnprocessableEntity, "adapter_not_found"},
		{"unexpected", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubDirectDebit{
				importFn: func(context.Context, directdebitdomain.ImportRequest) (*directdebitdomain.ImportResult, error) {
					return nil, tc.err
				},
			}
			srv := newTestServer(t, svc)

			rec := performRequest(srv, http.MethodPost, "/api/direct-debit/batches/42/responses", strings.NewReader("data"), map[string]string{"Content-Type": "text/csv"})
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			envelope := decodeError(t, rec)
			if envelope.Error.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", envelope.Error.Code, tc.wantCode)
			}
			if tc.wantCode == "internal_error" && strings.Contains(envelope.Error.Message, "connection reset") {
				t.Error("internal error detail leaked to the client")
			}
		})
	}
}

func TestListDirectDebitBatchesPassesFilters(t *testing.T) {
	var captured directdebitdomain.ListBatchesRequest
	svc := &stubDirectDebit{
		listFn: func(_ context.Context, req directdebitdomain.ListBatchesRequest) (directdebitdomain.ListBatchesResponse, error) {
			captured = req
			return directdebitdomain.ListBatchesResponse{Batches: []directdebitdomain.BatchSummary{{BatchID: 9}}}, nil
		},
	}
	srv := newTestServer(t, svc)

	rec := performRequest(srv, http.MethodGet, "/api/direct-debit/batches?from=2025-01-01&to=2025-01-31&direction=OUTBOUND&limit=5", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := directdebitdomain.ListBatchesRequest{From: "2025-01-01", To: "2025-01-31", Direction: "OUTBOUND", Limit: 5}
	if captured != want {
		t.Errorf("filter = %+v, want %+v", captured, want)
	}

	rec = performRequest(srv, http.MethodGet, "/api/direct-debit/batches?limit=abc", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: status = %d", rec.Code)
	}
	if decodeError(t, rec).Error.Code != "invalid_limit" {
		t.Errorf("bad limit: error = %+v", decodeError(t, rec).Error)
	}
}

func TestDownloadDirectDebitBatchFile(t *testing.T) {
	svc := &stubDirectDebit{
		downloadFn: func(_ context.Context, batchID string) (*directdebitdomain.BatchFile, error) {
			if batchID != "42" {
				return nil, directdebitdomain.ErrBatchNotFound
			}
			return &directdebitdomain.BatchFile{
				FileName:    "debit-20250108-42.csv",
				ContentType: "text/csv",
				Data:        []byte("header\nrow\n"),
			}, nil
		},
	}
	srv := newTestServer(t, svc)

	rec := performRequest(srv, http.MethodGet, "/api/direct-debit/batches/42/file", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="debit-20250108-42.csv"` {
		t.Errorf("content disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("content type = %q", got)
	}
	if rec.Body.String() != "header\nrow\n" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = performRequest(srv, http.MethodGet, "/api/direct-debit/batches/404/file", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing batch: status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubDirectDebit{})

	rec := performRequest(srv, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
