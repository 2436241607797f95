package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dh-lab/wikimatch/internal/config"
)

// withTestConfig points the global config at a stub reconciliation service
// for the duration of one test.
func withTestConfig(t *testing.T, baseURL string) {
	t.Helper()
	orig := cfg
	cfg = &config.Config{
		Reconcile: config.ReconcileConfig{
			BaseURL:            baseURL,
			Limit:              5,
			DelayMs:            1,
			AutoMatchThreshold: 95,
			AutoMatchAsserted:  true,
		},
	}
	t.Cleanup(func() { cfg = orig })
}

func stubReconService(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if strings.Contains(r.FormValue("queries"), "Albert Einstein") {
			fmt.Fprint(w, `{"q0":{"result":[
				{"id":"Q937","name":"Albert Einstein","description":"physicist","score":100,"match":true}
			]}}`)
			return
		}
		fmt.Fprint(w, `{"q0":{"result":[]}}`)
	}))
}

func postReconcile(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/reconcile", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	handleReconcile(rr, req)
	return rr
}

func TestHandleReconcile_Valid(t *testing.T) {
	srv := stubReconService(t)
	defer srv.Close()
	withTestConfig(t, srv.URL)

	rr := postReconcile(t, reconcileRequest{
		Headers: []string{"name", "born"},
		Rows: [][]string{
			{"Albert Einstein", "1879"},
			{"Unknown Person XYZ123", ""},
		},
		Column: "name",
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body runSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, 1, body.Stats.Matched)
	assert.Equal(t, 1, body.Stats.NoMatch)
	assert.Equal(t, "matched", body.Items[0].Status.String())
	require.NotNil(t, body.Items[0].Selected)
	assert.Equal(t, "Q937", body.Items[0].Selected.ID)
}

func TestHandleReconcile_InvalidBody(t *testing.T) {
	withTestConfig(t, "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodPost, "/reconcile", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	handleReconcile(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestHandleReconcile_MissingColumn(t *testing.T) {
	withTestConfig(t, "http://127.0.0.1:0")

	rr := postReconcile(t, reconcileRequest{
		Headers: []string{"name"},
		Rows:    [][]string{{"Ada Lovelace"}},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "column is required")
}

func TestHandleReconcile_UnknownColumn(t *testing.T) {
	withTestConfig(t, "http://127.0.0.1:0")

	rr := postReconcile(t, reconcileRequest{
		Headers: []string{"name"},
		Rows:    [][]string{{"Ada Lovelace"}},
		Column:  "title",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
