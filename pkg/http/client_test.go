package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWithRetryRecoversFrom5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var in map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"echo": in["v"]})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithBackoff(time.Millisecond))
	var out map[string]interface{}
	err := c.SendWithRetry(context.Background(), &RequestOptions{Method: MethodPost, Path: "/predict", Body: map[string]int{"v": 7}}, &out, 3)

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 7.0, out["echo"])
}

func TestSendWithRetryStopsOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad features", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	err := c.SendWithRetry(context.Background(), &RequestOptions{Method: MethodGet, Path: "health"}, nil, 5)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "bad features", se.Body)
	assert.False(t, se.Temporary())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSendWithRetryHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(WithBaseURL(srv.URL), WithBackoff(time.Hour))
	err := c.SendWithRetry(ctx, &RequestOptions{Method: MethodGet, Path: "/health"}, nil, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildRequestRequiresBaseURL(t *testing.T) {
	c := NewClient()
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, Path: "/x"}, nil)
	assert.Error(t, err)
}
