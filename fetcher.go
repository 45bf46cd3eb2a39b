package kintoneclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Fetcher sends a single HTTP request. The client calls it exactly once per
// operation and hands its result back to the caller unmodified.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts RequestOptions) (*Response, error)
}

// RequestOptions describes one outbound request
type RequestOptions struct {
	Method      string
	Headers     map[string]string
	ContentType string
	// Payload is sent as the request body when non nil
	Payload []byte
	// MuteHTTPExceptions makes non 2xx responses come back as ordinary
	// responses instead of an *APIError
	MuteHTTPExceptions bool
}

// HTTPFetcher is the Fetcher backed by net/http
type HTTPFetcher struct {
	// Underlying http client used for making all HTTP requests to kintone,
	// its timeout and transport settings apply to every request
	client http.Client
	logger *zap.Logger
}

var _ Fetcher = &HTTPFetcher{}

func NewHTTPFetcher(httpClient http.Client, logger *zap.Logger) *HTTPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{
		client: httpClient,
		logger: logger,
	}
}

// Fetch issues the request described by opts. Transport failures are always
// returned as errors. A non 2xx status yields both the response and an
// *APIError unless opts.MuteHTTPExceptions is set.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
	var body io.Reader
	if opts.Payload != nil {
		body = bytes.NewReader(opts.Payload)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, url, body)
	if err != nil {
		return nil, err
	}

	for hKey, hVal := range opts.Headers {
		req.Header.Set(hKey, hVal)
	}
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	resBytes, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, err
	}

	response := &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       resBytes,
	}
	if opts.MuteHTTPExceptions || response.OK() {
		return response, nil
	}

	// kintone error responses:
	// https://cybozu.dev/ja/kintone/docs/rest-api/overview/kintone-rest-api-overview/#error-response
	apiErr := APIError{StatusCode: res.StatusCode}
	if err := json.Unmarshal(resBytes, &apiErr); err != nil || apiErr.Code == "" {
		f.logger.Error("Unexpected kintone error response format",
			zap.Int("statusCode", res.StatusCode),
			zap.String("responseBody", string(resBytes)),
		)
		return response, fmt.Errorf("unexpected HTTP status code: %d", res.StatusCode)
	}
	return response, &apiErr
}
