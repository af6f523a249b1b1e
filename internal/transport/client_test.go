package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/quotesync/internal/transport"
	pkgerrors "github.com/agentstation/quotesync/pkg/errors"
)

func TestGetSetsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := transport.New(transport.WithUserAgent("test-agent"))
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	var got struct{ OK bool }
	require.NoError(t, transport.DecodeResponse(resp, &got))
	assert.True(t, got.OK)
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, transport.JSONContentType, r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Be bold", body["text"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":101}`))
	}))
	defer srv.Close()

	resp, err := transport.New().PostJSON(context.Background(), srv.URL, map[string]string{"text": "Be bold"})
	require.NoError(t, err)

	var got struct{ ID int }
	require.NoError(t, transport.DecodeResponse(resp, &got))
	assert.Equal(t, 101, got.ID)
}

func TestDecodeResponseErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			body:   "down",
			check: func(t *testing.T, err error) {
				var apiErr *pkgerrors.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
				assert.Equal(t, "down", apiErr.Message)
			},
		},
		{
			name:   "bad json",
			status: http.StatusOK,
			body:   "{",
			check: func(t *testing.T, err error) {
				var parseErr *pkgerrors.ParseError
				assert.True(t, errors.As(err, &parseErr))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := transport.New().Get(context.Background(), srv.URL)
			require.NoError(t, err)
			var target map[string]any
			tt.check(t, transport.DecodeResponse(resp, &target))
		})
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := transport.New(transport.WithTimeout(20 * time.Millisecond)).Get(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, transport.IsSuccess(200))
	assert.True(t, transport.IsSuccess(201))
	assert.False(t, transport.IsSuccess(301))
	assert.False(t, transport.IsSuccess(404))
}
