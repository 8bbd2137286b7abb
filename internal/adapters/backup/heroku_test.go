package backup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type configVarServer struct {
	vars    map[string]string
	status  int
	headers http.Header
}

func (s *configVarServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.headers = r.Header.Clone()
	if r.URL.Path != "/apps/my-app/config-vars" {
		http.NotFound(w, r)
		return
	}
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	if r.Method == http.MethodPatch {
		patch := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&patch)
		for k, v := range patch {
			s.vars[k] = v
		}
	}
	json.NewEncoder(w).Encode(s.vars)
}

func newTestMirror(t *testing.T, srv *configVarServer) *HerokuMirror {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	m := NewHerokuMirror("secret", "my-app")
	m.baseURL = ts.URL
	return m
}

func TestHerokuMirror_PushThenPull(t *testing.T) {
	srv := &configVarServer{vars: map[string]string{"OTHER": "x"}}
	m := newTestMirror(t, srv)
	ctx := context.Background()

	require.NoError(t, m.Push(ctx, []byte(`{"1": {"id": "1"}}`)))
	assert.Equal(t, "Bearer secret", srv.headers.Get("Authorization"))
	assert.Equal(t, "application/vnd.heroku+json; version=3", srv.headers.Get("Accept"))

	got, err := m.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"1": {"id": "1"}}`, string(got))
	assert.Equal(t, "x", srv.vars["OTHER"])
}

func TestHerokuMirror_PullEmpty(t *testing.T) {
	m := newTestMirror(t, &configVarServer{vars: map[string]string{}})

	got, err := m.Pull(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHerokuMirror_Errors(t *testing.T) {
	m := newTestMirror(t, &configVarServer{status: http.StatusUnauthorized})

	_, err := m.Pull(context.Background())
	assert.ErrorContains(t, err, "status code 401")
	assert.ErrorContains(t, m.Push(context.Background(), []byte("{}")), "status code 401")
}
