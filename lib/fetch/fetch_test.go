package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"precisebet/lib/testutil"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	client, err := NewClient(Options{
		Timeout:   5 * time.Second,
		RetryWait: time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestFetchDecodesGB2312(t *testing.T) {
	encoded := testutil.EncodeGBK(t, "<h2>皇家马德里</h2>")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, encoded)
	}))
	defer srv.Close()

	body, err := newTestClient(t).Fetch(context.Background(), Request{
		URL:       srv.URL,
		UserAgent: "test-agent",
		Encoding:  "gb2312",
		Attempts:  1,
	})
	require.NoError(t, err)
	require.Equal(t, "<h2>皇家马德里</h2>", body)
}

func TestFetchPostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "123", r.PostForm.Get("id"))
		require.Equal(t, "-1", r.PostForm.Get("match[disabled]"))
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	body, err := newTestClient(t).Fetch(context.Background(), Request{
		Method: "post",
		URL:    srv.URL,
		Form: map[string]string{
			"id":              "123",
			"match[disabled]": "-1",
		},
		Attempts: 1,
	})
	require.NoError(t, err)
	require.Equal(t, "ok", body)
}

func TestFetchRetriesUntilSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "done")
	}))
	defer srv.Close()

	body, err := newTestClient(t).Fetch(context.Background(), Request{
		URL:      srv.URL,
		Attempts: 0,
	})
	require.NoError(t, err)
	require.Equal(t, "done", body)
	require.EqualValues(t, 3, hits.Load())
}

func TestFetchExhaustsAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "slow down")
	}))
	defer srv.Close()

	_, err := newTestClient(t).Fetch(context.Background(), Request{
		URL:      srv.URL,
		Attempts: 3,
	})
	require.Error(t, err)
	require.EqualValues(t, 3, hits.Load())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, 3, reqErr.Attempts)
	require.Equal(t, http.StatusServiceUnavailable, reqErr.StatusCode)
	require.Equal(t, "slow down", reqErr.Body)
	require.True(t, reqErr.RateLimited())
}

func TestFetchStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(Options{RetryWait: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = client.Fetch(ctx, Request{URL: srv.URL, Attempts: 0})
	require.True(t, errors.Is(err, context.Canceled))
}

func TestFetchKeepsCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		cookie, err := r.Cookie("session")
		if err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, cookie.Value)
	}))
	defer srv.Close()

	client := newTestClient(t)
	_, err := client.Fetch(context.Background(), Request{URL: srv.URL + "/login", Attempts: 1})
	require.NoError(t, err)

	body, err := client.Fetch(context.Background(), Request{URL: srv.URL + "/page", Attempts: 1})
	require.NoError(t, err)
	require.Equal(t, "abc", body)
}
