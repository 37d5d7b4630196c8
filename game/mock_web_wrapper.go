package game

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MockWebWrapper serves canned responses to the page adapter.
type MockWebWrapper struct {
	GetURLFunc  func(path string) (*http.Response, error)
	PostURLFunc func(path string, data url.Values) (*http.Response, error)
}

// NewMockWebWrapper returns a wrapper that answers every request with an empty 200.
func NewMockWebWrapper() *MockWebWrapper {
	return &MockWebWrapper{}
}

// StaticPage returns a response serving body with status 200.
func StaticPage(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func (m *MockWebWrapper) GetURL(ctx context.Context, path string) (*http.Response, error) {
	if m.GetURLFunc != nil {
		return m.GetURLFunc(path)
	}
	return StaticPage(""), nil
}

func (m *MockWebWrapper) PostURL(ctx context.Context, path string, data url.Values) (*http.Response, error) {
	if m.PostURLFunc != nil {
		return m.PostURLFunc(path, data)
	}
	return StaticPage(""), nil
}
