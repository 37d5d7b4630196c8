package core

import (
	"context"
	"net/http"
	"net/url"
)

// WebWrapperInterface is the HTTP surface the page adapter needs.
type WebWrapperInterface interface {
	GetURL(ctx context.Context, path string) (*http.Response, error)
	PostURL(ctx context.Context, path string, data url.Values) (*http.Response, error)
}
