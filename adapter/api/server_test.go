package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbesNeedNoKey(t *testing.T) {
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])

	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/organization/1/", nil)
		if key != "" {
			req.Header.Set("Api-Key", key)
		}
		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)
		return w
	}

	w := send("")
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "You do not have permission to perform this action.", body["detail"])

	assert.Equal(t, http.StatusForbidden, send("not-a-uuid").Code)
	assert.Equal(t, http.StatusForbidden, send(uuid.NewString()).Code)

	// The key works until revoked.
	ts.registerOrganization(1)
	require.NoError(t, ts.keys.Deactivate(context.Background(), uuid.MustParse(ts.apiKey)))
	assert.Equal(t, http.StatusForbidden, send(ts.apiKey).Code)
}

func TestRoutesTrailSlashes(t *testing.T) {
	ts := newTestServer(t)
	ts.registerOrganization(10)

	// The route table registers trailing-slash paths; the bare path is
	// not an alias.
	w := ts.do(http.MethodGet, "/organization/10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, "/organization/10/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
