package dataterm

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/dataterm/date"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// contains http utils shared by the remote sources

// HTTPOptions configures NewHTTPClient.
type HTTPOptions struct {
	// CacheDir holds cached responses, empty disables the cache.
	CacheDir string
	// Period is the lifetime of cached responses. Entries expire at the
	// end of the period.
	Period date.Period
	// RPS limits the rate of requests sent to the remote, 0 is unlimited.
	RPS float64
	// Log receives one debug line per request.
	Log *logrus.Entry
	// Transport is the underlying transport, defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// NewHTTPClient returns a client with a disk cache and a rate limiter.
func NewHTTPClient(opts HTTPOptions) *http.Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c := &diskCache{base: base, dir: opts.CacheDir, period: opts.Period, log: opts.Log}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return &http.Client{Transport: c}
}

// diskCache implements a simple disk cache for HTTP responses
type diskCache struct {
	base    http.RoundTripper
	dir     string
	period  date.Period
	limiter *rate.Limiter
	log     *logrus.Entry
}

// RoundTrip serves fresh cached responses from disk, otherwise it waits for the
// rate limiter, performs the request and caches successful responses.
func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	// the key includes the current period, so entries expire at the end of it.
	today := date.Today()
	key := fmt.Sprintf("%s %s %s", today.StartOf(c.period), req.Method, req.URL.String())
	key = fmt.Sprintf("%s-%x", c.period, sha1.Sum([]byte(key)))

	if c.dir != "" {
		if cached, err := c.get(key, req); err == nil {
			return cached, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"method": req.Method,
		"host":   req.URL.Host,
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	}).Debug("http")
	if resp.StatusCode >= 300 || c.dir == "" {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		c.log.WithError(err).Warn("cache write (ignored)")
	}
	return resp, nil
}

// get retrieves a cached response from disk
func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores a response to disk cache. DumpResponse leaves resp readable.
func (c *diskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o644)
}

// GetBody performs an HTTP GET and returns the response body.
//
// Transport failures, 401, 403, 429 and 5xx answers are reported as
// ErrSourceUnavailable, 404 as ErrEmptyResult.
func GetBody(ctx context.Context, client *http.Client, addr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timeout: %v", ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		where := fmt.Sprintf("%v%v", req.URL.Host, req.URL.Path)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: GET %s: %v", ErrEmptyResult, where, resp.Status)
		default:
			return nil, fmt.Errorf("%w: GET %s: %v", ErrSourceUnavailable, where, resp.Status)
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading answer: %v", ErrSourceUnavailable, err)
	}
	return body, nil
}

// GetJSON performs an HTTP GET and unmarshals the JSON answer into v.
func GetJSON(ctx context.Context, client *http.Client, addr string, v any) error {
	body, err := GetBody(ctx, client, addr)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid answer: %v", ErrSourceUnavailable, err)
	}
	return nil
}
