// Package poeditor is a small client for the POEditor API v2
// (https://poeditor.com/docs/api): project upload, language list, project
// export and download of the exported file.
//
// Every response goes through the same checks: a transport error or a
// non-200 status is returned without reading the body, a 200 with invalid
// JSON is a parse error carrying the raw body, and valid JSON without a
// "result" object is a semantic error. See Error and Kind.
package poeditor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const userAgent = "poeditor-connector/1.0"

// Client talks to the POEditor API. The API root, token and project come
// from the config.Config passed to each call.
type Client struct {
	http *http.Client
	log  logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used to trace requests at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient returns a Client. Without options it uses a default HTTP
// client with no timeout and discards its trace output.
func NewClient(opts ...Option) *Client {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	c := &Client{
		http: &http.Client{},
		log:  quiet,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient builds an HTTP client honouring an explicit proxy URL, or
// HTTP_PROXY/HTTPS_PROXY when proxyURL is empty. A zero timeout means none.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", proxyURL)
		}
		transport.Proxy = http.ProxyURL(parsed)
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// ---------------------------------------------------------------------------
// Request plumbing
// ---------------------------------------------------------------------------

// envelope is the common shape of every POEditor API response.
type envelope struct {
	Response struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"response"`
	Result json.RawMessage `json:"result"`
}

// postForm sends a form-encoded POST and decodes "result" into result.
func (c *Client) postForm(ctx context.Context, op, endpoint string, form url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, op, result)
}

// do executes req and applies the response checks described in the
// package documentation.
func (c *Client) do(req *http.Request, op string, result any) error {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	log := c.log.WithFields(logrus.Fields{"op": op, "url": req.URL.Redacted()})
	log.Debugf("%s %s", req.Method, req.URL.Path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start).Round(time.Millisecond)})

	if resp.StatusCode != http.StatusOK {
		log.Debug("unexpected status")
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return &Error{Op: op, Kind: KindHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: fmt.Errorf("reading response: %w", err)}
	}
	log.WithField("bytes", len(body)).Debug("response received")

	return decodeEnvelope(op, body, result)
}

// decodeEnvelope checks the response envelope and unmarshals its result.
// A nil result only checks that "result" is present.
func decodeEnvelope(op string, body []byte, result any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &Error{Op: op, Kind: KindParse, Body: string(body), Err: err}
	}

	if len(env.Result) == 0 || string(env.Result) == "null" {
		return &Error{Op: op, Kind: KindSemantic, Field: "result", Message: env.Response.Message}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return &Error{Op: op, Kind: KindParse, Body: string(body), Err: err}
	}
	return nil
}

// withLanguage tags a returned *Error with the language it was made for.
func withLanguage(err error, lang string) error {
	var e *Error
	if errors.As(err, &e) && e.Language == "" {
		e.Language = lang
	}
	return err
}
