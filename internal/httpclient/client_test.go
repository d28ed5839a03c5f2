package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-value", r.Header.Get("X-Test-Header"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).WithUserAgent("test-agent").Build()
	require.NoError(t, err)

	resp, err := client.Do(&HTTPRequest{
		URL:     server.URL,
		Method:  "GET",
		Headers: map[string]string{"X-Test-Header": "test-value"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.ContentType())
	assert.False(t, resp.Truncated)
	assert.EqualValues(t, len(`{"status":"ok"}`), resp.ContentLength)
}

func TestHTTPClient_Do_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"key":"value"}`, string(body))
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)

	resp, err := client.Do(&HTTPRequest{
		URL:     server.URL,
		Method:  "POST",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    bytes.NewReader([]byte(`{"key":"value"}`)),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"received":true}`, string(resp.Body))
}

func TestHTTPClient_Redirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/redirect":
			http.Redirect(w, r, "/final", http.StatusFound)
		case "/final":
			fmt.Fprint(w, "ok")
		}
	}))
	defer ts.Close()

	clientFollow, err := NewHTTPClientBuilder(zerolog.Nop()).WithFollowRedirects(true).Build()
	require.NoError(t, err)
	resp, err := clientFollow.Get(context.Background(), ts.URL+"/redirect")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, ts.URL+"/final", resp.FinalURL)

	clientNoFollow, err := NewHTTPClientBuilder(zerolog.Nop()).WithFollowRedirects(false).Build()
	require.NoError(t, err)
	resp, err = clientNoFollow.Get(context.Background(), ts.URL+"/redirect")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestHTTPClient_RedirectGuard(t *testing.T) {
	var offsiteHits int32
	offsite := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&offsiteHits, 1)
	}))
	defer offsite.Close()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, offsite.URL+"/elsewhere", http.StatusMovedPermanently)
	}))
	defer ts.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)

	base, _ := url.Parse(ts.URL)
	ctx := ContextWithRedirectGuard(context.Background(), func(target *url.URL) bool {
		return target.Host == base.Host
	})

	resp, err := client.Get(ctx, ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Zero(t, atomic.LoadInt32(&offsiteHits))
}

func TestHTTPClient_MaxContentSize(t *testing.T) {
	longContent := "this is some very long content"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(longContent))
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).WithMaxContentSize(10).Build()
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "this is so", string(resp.Body))
	assert.True(t, resp.Truncated)
	assert.EqualValues(t, len(longContent), resp.ContentLength)
}

func TestHTTPClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).WithTimeout(20 * time.Millisecond).Build()
	require.NoError(t, err)

	_, err = client.Get(context.Background(), server.URL)
	require.Error(t, err)

	var netErr *common.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, server.URL, netErr.URL)
	assert.Equal(t, "request failed", netErr.Reason)
}

func TestHTTPClient_SingleAttempt(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestHTTPResponse_ContentType(t *testing.T) {
	resp := &HTTPResponse{Headers: map[string]string{"Content-Type": " Text/HTML; charset=UTF-8"}}
	assert.Equal(t, "text/html", resp.ContentType())
	assert.Empty(t, (&HTTPResponse{Headers: map[string]string{}}).ContentType())
}
