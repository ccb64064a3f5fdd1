package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURL(t *testing.T) {
	t.Run("finds the first url in shared text", func(t *testing.T) {
		shared := "Check this out https://example.com/article?id=42 and tell me"
		assert.Equal(t, "https://example.com/article?id=42", ExtractURL(shared))
	})

	t.Run("plain http is accepted", func(t *testing.T) {
		assert.Equal(t, "http://example.com", ExtractURL("see http://example.com"))
	})

	t.Run("no url yields empty string", func(t *testing.T) {
		assert.Equal(t, "", ExtractURL("nothing to see here"))
	})
}

func metadataServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("prefers the open graph title", func(t *testing.T) {
		server := metadataServer(t, `<html><head>
			<meta property="og:title" content="OG Title">
			<meta name="twitter:title" content="Twitter Title">
			<title>Document Title</title>
		</head></html>`)

		assert.Equal(t, "OG Title", NewHTTPFetcher().FetchTitle(ctx, server.URL))
	})

	t.Run("falls back to twitter card then document title", func(t *testing.T) {
		server := metadataServer(t, `<html><head>
			<meta name="twitter:title" content="Twitter Title">
			<title>Document Title</title>
		</head></html>`)
		assert.Equal(t, "Twitter Title", NewHTTPFetcher().FetchTitle(ctx, server.URL))

		server = metadataServer(t, `<html><head><title> Document Title </title></head></html>`)
		assert.Equal(t, "Document Title", NewHTTPFetcher().FetchTitle(ctx, server.URL))
	})

	t.Run("resolves the open graph image", func(t *testing.T) {
		server := metadataServer(t, `<html><head>
			<meta property="og:image" content="https://example.com/cover.jpg">
		</head></html>`)

		assert.Equal(t, "https://example.com/cover.jpg", NewHTTPFetcher().FetchImageURL(ctx, server.URL))
	})

	t.Run("failures are absorbed as empty strings", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		fetcher := NewHTTPFetcher()
		assert.Equal(t, "", fetcher.FetchTitle(ctx, server.URL))
		assert.Equal(t, "", fetcher.FetchImageURL(ctx, "http://127.0.0.1:1/unreachable"))
	})
}
