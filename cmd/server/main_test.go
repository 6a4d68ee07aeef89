package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docmodels "fisco/internal/document/models"
	docservice "fisco/internal/document/service"
	docstore "fisco/internal/document/store"
	observice "fisco/internal/obligation/service"
	obstore "fisco/internal/obligation/store"
	"fisco/internal/platform/config"
	"fisco/internal/platform/metrics"
	"fisco/internal/reconcile/engine"
	recservice "fisco/internal/reconcile/service"
	recstore "fisco/internal/reconcile/store"
)

var testMetrics = metrics.New()

type stubProcessor struct{}

func (stubProcessor) Process(_ context.Context, doc docmodels.RawDocument) (docmodels.DocumentRecord, error) {
	return docmodels.DocumentRecord{
		ID:         doc.ID,
		Filename:   doc.Filename,
		UploadedAt: doc.UploadedAt,
		Period:     doc.Period,
		PageCount:  1,
		Status:     docmodels.StatusParsed,
	}, nil
}

// newTestServer registers all three module handlers on one root router, the
// same way run does.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	documents := docstore.NewMemory()
	obligations := obstore.NewMemory()
	reports := recstore.NewMemory()

	docSvc := docservice.New(documents, stubProcessor{}, log)
	obSvc := observice.New(obligations, log)
	recSvc := recservice.New(documents, obligations, reports, engine.New(config.Matching{
		DateWindowDays:      5,
		AmountTolerance:     0.01,
		FuzzyMatchThreshold: 0.85,
		AcceptanceThreshold: 0.6,
	}), log)

	srv := httptest.NewServer(newRouter(log, testMetrics, docSvc, obSvc, recSvc))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRouter_AllModulesServeFromOneRouter(t *testing.T) {
	srv := newTestServer(t)

	get := func(path string) *http.Response {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusOK, get("/healthz").StatusCode)
	assert.Equal(t, http.StatusOK, get("/metrics").StatusCode)
	assert.Equal(t, http.StatusOK, get("/documentos?period=2024-03").StatusCode)
	assert.Equal(t, http.StatusOK, get("/obrigacoes?period=2024-03").StatusCode)
	assert.Equal(t, http.StatusOK, get("/conciliacao/relatorios?period=2024-03").StatusCode)

	body, err := json.Marshal(map[string]string{"period": "2024-03"})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/conciliacao/executar", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
