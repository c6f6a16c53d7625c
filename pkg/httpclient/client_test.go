package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDecodesJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bar", r.URL.Query().Get("foo"))
		w.Write([]byte(`{"value": 7}`))
	}))
	defer srv.Close()

	c := New(100)
	params := url.Values{}
	params.Set("foo", "bar")

	resp, err := c.Get(context.Background(), srv.URL, params, nil)
	require.NoError(t, err)

	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, 7, out.Value)
}

func TestGetMergesParamsWithExistingQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("a"))
		assert.Equal(t, "2", r.URL.Query().Get("b"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(100)
	params := url.Values{}
	params.Set("b", "2")

	_, err := c.Get(context.Background(), srv.URL+"/?a=1", params, nil)
	require.NoError(t, err)
}

func TestGetSetsUserAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Custom/2.0 (mailto:a@b.c)", r.Header.Get("User-Agent"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(100, WithUserAgent("Custom/2.0 (mailto:a@b.c)"))
	_, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
}

func TestStatusErrorIsProtocolKind(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(100)
	_, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindProtocol, herr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, herr.StatusCode)
}

func TestTimeoutIsTimeoutKind(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(100, WithTimeout(20*time.Millisecond))
	_, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindTimeout, herr.Kind)
}

func TestConnectionRefusedIsConnectionKind(t *testing.T) {
	t.Parallel()

	// Grab a port that nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead := srv.URL
	srv.Close()

	c := New(100)
	_, err := c.Get(context.Background(), dead, nil, nil)
	require.Error(t, err)

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindConnection, herr.Kind)
}

func TestRejectsNonHTTPURL(t *testing.T) {
	t.Parallel()

	c := New(100)
	_, err := c.Get(context.Background(), "ftp://example.org/file", nil, nil)
	require.Error(t, err)

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindOther, herr.Kind)
}

func TestPostFormEncoding(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "v", r.PostForm.Get("k"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(100)
	_, err := c.Post(context.Background(), srv.URL, map[string]string{"k": "v"}, nil, false)
	require.NoError(t, err)
}

func TestInvalidJSONBody(t *testing.T) {
	t.Parallel()

	resp := &Response{Body: []byte("not json")}
	var out map[string]any
	err := resp.JSON(&out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(100)
	_, err := c.Get(ctx, srv.URL, nil, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled), "raw context errors must not escape")
}
