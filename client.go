package kintoneclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Client issues requests against the kintone REST API. Every method sends
// exactly one request and returns the transport response unparsed.
type Client interface {
	Create(ctx context.Context, appName string, records []Record) (*Response, error)
	Search(ctx context.Context, appName, query string) (*Response, error)
	Update(ctx context.Context, appName string, records []Record) (*Response, error)
	Destroy(ctx context.Context, appName string, recordIDs []int64) (*Response, error)
	Upload(ctx context.Context, appName, fileID string) (*Response, error)
}

// Config holds everything a client needs. It is copied by NewClient and must
// not be changed afterwards.
type Config struct {
	// Subdomain of the kintone domain ("example" for example.cybozu.com),
	// or a full host name ending in ".com"
	Subdomain string
	Apps      AppRegistry

	// Session authenticates as a user across all apps. When unset, each
	// app's API token is the only credential sent.
	Session Credential
	// BasicAuth is sent as an HTTP Basic Authorization header, only
	// together with Session
	BasicAuth Credential

	// Fetcher defaults to an HTTPFetcher over a zero http.Client
	Fetcher Fetcher
	// Files resolves the ids passed to Upload, defaults to the local disk
	Files FileSource

	// StrictHTTPStatus makes every operation return an *APIError along with
	// the response when kintone answers with a non 2xx status
	StrictHTTPStatus bool

	Logger *zap.Logger
}

type kintoneClient struct {
	subdomain string
	apps      AppRegistry
	session   Credential
	basicAuth Credential
	fetcher   Fetcher
	files     FileSource
	strict    bool
	logger    *zap.Logger
}

var _ Client = &kintoneClient{}

func NewClient(cfg Config) (Client, error) {
	if cfg.Subdomain == "" {
		return nil, errors.New("kintone subdomain is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	apps := make(AppRegistry, len(cfg.Apps))
	for name, app := range cfg.Apps {
		apps[name] = app
	}

	c := kintoneClient{
		subdomain: cfg.Subdomain,
		apps:      apps,
		session:   cfg.Session,
		basicAuth: cfg.BasicAuth,
		fetcher:   cfg.Fetcher,
		files:     cfg.Files,
		strict:    cfg.StrictHTTPStatus,
		logger:    logger,
	}
	if c.fetcher == nil {
		c.fetcher = NewHTTPFetcher(http.Client{}, logger)
	}
	if c.files == nil {
		c.files = NewFSFileSource(osFs)
	}

	return &c, nil
}

// Create adds records to the app
// see https://cybozu.dev/ja/kintone/docs/rest-api/records/add-records/
func (c *kintoneClient) Create(ctx context.Context, appName string, records []Record) (*Response, error) {
	return c.sendRecords(ctx, http.MethodPost, appName, records)
}

// Update updates records of the app, each record carrying its "id"
// see https://cybozu.dev/ja/kintone/docs/rest-api/records/update-records/
func (c *kintoneClient) Update(ctx context.Context, appName string, records []Record) (*Response, error) {
	return c.sendRecords(ctx, http.MethodPut, appName, records)
}

// Search fetches the records of the app matching query, written in the
// kintone query language
// see https://cybozu.dev/ja/kintone/docs/rest-api/records/get-records/
func (c *kintoneClient) Search(ctx context.Context, appName, query string) (*Response, error) {
	app, headers, err := c.prepare(appName)
	if err != nil {
		return nil, err
	}
	url := endpoint(c.subdomain, app) + "/records.json?" + searchQuery(app.AppID, query)
	return c.send(ctx, appName, url, RequestOptions{
		Method:  http.MethodGet,
		Headers: headers,
	})
}

// Destroy deletes the records of the app with the given ids
// see https://cybozu.dev/ja/kintone/docs/rest-api/records/delete-records/
func (c *kintoneClient) Destroy(ctx context.Context, appName string, recordIDs []int64) (*Response, error) {
	app, headers, err := c.prepare(appName)
	if err != nil {
		return nil, err
	}
	url := endpoint(c.subdomain, app) + "/records.json?" + destroyQuery(app.AppID, recordIDs)
	return c.send(ctx, appName, url, RequestOptions{
		Method:  http.MethodDelete,
		Headers: headers,
	})
}

// Upload sends the file identified by fileID to kintone. The response holds
// the file key to use in an attachment field, see ParseFileKey.
// see https://cybozu.dev/ja/kintone/docs/rest-api/files/upload-file/
func (c *kintoneClient) Upload(ctx context.Context, appName, fileID string) (*Response, error) {
	app, headers, err := c.prepare(appName)
	if err != nil {
		return nil, err
	}

	file, err := c.files.Open(ctx, fileID)
	if err != nil {
		return nil, err
	}
	payload, err := buildMultipartBody(*file)
	if err != nil {
		return nil, err
	}

	return c.send(ctx, appName, endpoint(c.subdomain, app)+"/file.json", RequestOptions{
		Method:      http.MethodPost,
		Headers:     headers,
		ContentType: multipartContentType(),
		Payload:     payload,
	})
}

func (c *kintoneClient) sendRecords(ctx context.Context, method, appName string, records []Record) (*Response, error) {
	app, headers, err := c.prepare(appName)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(recordsRequest{App: app.AppID, Records: records})
	if err != nil {
		return nil, err
	}
	return c.send(ctx, appName, endpoint(c.subdomain, app)+"/records.json", RequestOptions{
		Method:      method,
		Headers:     headers,
		ContentType: "application/json",
		Payload:     payload,
	})
}

// prepare resolves appName and builds its authentication headers, failing
// before any network I/O
func (c *kintoneClient) prepare(appName string) (AppEntry, map[string]string, error) {
	app, err := c.apps.Lookup(appName)
	if err != nil {
		return AppEntry{}, nil, err
	}
	headers, err := buildAuthHeaders(appName, c.session, c.basicAuth, app.APIToken)
	if err != nil {
		return AppEntry{}, nil, err
	}
	return app, headers, nil
}

func (c *kintoneClient) send(ctx context.Context, appName, url string, opts RequestOptions) (*Response, error) {
	opts.MuteHTTPExceptions = !c.strict
	c.logger.Debug("Sending kintone request",
		zap.String("app", appName),
		zap.String("method", opts.Method),
		zap.String("url", url),
	)

	res, err := c.fetcher.Fetch(ctx, url, opts)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Debug("kintone responded with an error",
				zap.String("app", appName),
				zap.Int("statusCode", apiErr.StatusCode),
				zap.String("code", apiErr.Code),
			)
		} else if res == nil {
			c.logger.Error("Error sending kintone request",
				zap.String("app", appName),
				zap.String("method", opts.Method),
				zap.Error(err),
			)
		}
		return res, err
	}
	return res, nil
}

// searchQuery builds "app={appId}&query={query}" with the query escaped the
// way encodeURIComponent does it (spaces as %20)
func searchQuery(appID int64, query string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return "app=" + strconv.FormatInt(appID, 10) + "&query=" + escaped
}

// destroyQuery builds "app={appId}&ids[0]={id}&ids[1]={id}..." keeping the
// order of ids
func destroyQuery(appID int64, ids []int64) string {
	var b strings.Builder
	b.WriteString("app=")
	b.WriteString(strconv.FormatInt(appID, 10))
	for i, id := range ids {
		b.WriteString("&ids[")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("]=")
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
