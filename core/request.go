package core

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// WebWrapper is an object for sending HTTP requests to a game server.
type WebWrapper struct {
	client       *http.Client
	headers      http.Header
	Endpoint     string
	minDelay     time.Duration
	maxDelay     time.Duration
	lastResponse *http.Response
	lock         sync.Mutex
}

// NewWebWrapper creates a new WebWrapper. Delays are in seconds; credentials
// may carry "user_agent" and "cookie".
func NewWebWrapper(endpoint string, minDelay, maxDelay int, credentials map[string]string) (*WebWrapper, error) {
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	userAgent := credentials["user_agent"]
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	headers := http.Header{
		"User-Agent":                []string{userAgent},
		"Upgrade-Insecure-Requests": []string{"1"},
	}
	if cookie := credentials["cookie"]; cookie != "" {
		headers.Set("Cookie", cookie)
	}

	return &WebWrapper{
		client: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		headers:  headers,
		Endpoint: endpoint,
		minDelay: time.Duration(minDelay) * time.Second,
		maxDelay: time.Duration(maxDelay) * time.Second,
	}, nil
}

// setRefererAndOrigin updates the Referer and Origin headers based on the last response URL.
func (ww *WebWrapper) setRefererAndOrigin(req *http.Request) {
	ww.lock.Lock()
	last := ww.lastResponse
	ww.lock.Unlock()
	if last != nil && last.Request != nil {
		req.Header.Set("Referer", last.Request.URL.String())
	}
	originURL, err := url.Parse(ww.Endpoint)
	if err == nil {
		req.Header.Set("Origin", originURL.Scheme+"://"+originURL.Host)
	}
}

// randomDelay waits a random time between the configured bounds before a request.
func (ww *WebWrapper) randomDelay(ctx context.Context) error {
	if ww.maxDelay <= 0 || ww.maxDelay < ww.minDelay {
		return nil
	}
	delay := ww.minDelay
	if ww.maxDelay > ww.minDelay {
		delay += time.Duration(rand.Int63n(int64(ww.maxDelay - ww.minDelay)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (ww *WebWrapper) resolve(path string) (string, error) {
	fullURL, err := url.Parse(ww.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL: %w", err)
	}
	fullURL, err = fullURL.Parse(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse path: %w", err)
	}
	return fullURL.String(), nil
}

func (ww *WebWrapper) do(req *http.Request, desc string) (*http.Response, error) {
	req.Header = ww.headers.Clone()
	ww.setRefererAndOrigin(req)
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := ww.client.Do(req)
	if err != nil {
		log.Printf("%s failed: %v", desc, err)
		return nil, err
	}
	ww.lock.Lock()
	ww.lastResponse = resp
	ww.lock.Unlock()
	log.Printf("%s [%d]", desc, resp.StatusCode)
	return resp, nil
}

// GetURL fetches a URL using a GET request.
func (ww *WebWrapper) GetURL(ctx context.Context, path string) (*http.Response, error) {
	if err := ww.randomDelay(ctx); err != nil {
		return nil, err
	}
	full, err := ww.resolve(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return ww.do(req, "GET "+path)
}

// PostURL sends a POST request with form data.
func (ww *WebWrapper) PostURL(ctx context.Context, path string, data url.Values) (*http.Response, error) {
	if err := ww.randomDelay(ctx); err != nil {
		return nil, err
	}
	full, err := ww.resolve(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, full, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}
	return ww.do(req, "POST "+path+" "+data.Encode())
}

// ReadBody reads the response body and returns it as a string.
// Non-2xx responses are returned as errors.
func ReadBody(resp *http.Response) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("response is nil")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return string(body), fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return string(body), nil
}
