package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fisco/internal/obligation/handler"
	"fisco/internal/obligation/models"
	"fisco/internal/obligation/service"
	"fisco/internal/obligation/store"
	"fisco/internal/platform/metrics"
	dErrors "fisco/pkg/domain-errors"
)

var testMetrics = metrics.New()

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewMemory(), logger)
	h := handler.New(svc, logger, testMetrics)

	r := chi.NewRouter()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func importRequest(t *testing.T, url, filename string, fields map[string]string, payload []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/obrigacoes/importar", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestImport_CSVCreated(t *testing.T) {
	srv := newServer(t)

	csv := "id,valor,vencimento,contraparte\n" +
		`OB-001,"150,00",20/03/2024,12.345.678/0001-90` + "\n"
	resp := importRequest(t, srv.URL, "ledger.csv", map[string]string{"period": "2024-03"}, []byte(csv))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result models.ImportResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, result.Skipped)

	listResp, err := http.Get(srv.URL + "/obrigacoes?period=2024-03")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var obligations []models.Obligation
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&obligations))
	require.Len(t, obligations, 1)
	assert.Equal(t, "OB-001", obligations[0].ExternalID)
}

func TestImport_CustomMapping(t *testing.T) {
	srv := newServer(t)

	csv := "ref,amount,due,vendor\nA1,150.00,2024-03-10,11144477735\n"
	resp := importRequest(t, srv.URL, "export.csv", map[string]string{
		"period":      "2024-03",
		"mapping":     `{"external_id":"ref","amount":"amount","due_date":"due","counterparty":"vendor"}`,
		"date_format": "yyyy-mm-dd",
	}, []byte(csv))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result models.ImportResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.Imported)
}

func TestImport_UnsupportedExtension(t *testing.T) {
	srv := newServer(t)

	resp := importRequest(t, srv.URL, "ledger.ods", map[string]string{"period": "2024-03"}, []byte("x"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, string(dErrors.CodeUnsupportedFormat), body["error"])
}

func TestImport_MissingPeriod(t *testing.T) {
	srv := newServer(t)

	resp := importRequest(t, srv.URL, "ledger.csv", nil, []byte("id,valor\n"))
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestList_InvalidDueWithinDays(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/obrigacoes?period=2024-03&due_within_days=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGet_NotFound(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/obrigacoes/0f8fad5b-d9cb-469f-a165-70867728950e")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
