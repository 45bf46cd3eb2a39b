package kintoneclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/nicheinc/expect"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var testApps = AppRegistry{
	"orders":   {AppID: 5, Name: "Orders", APIToken: "orders-token"},
	"partners": {AppID: 12, GuestID: int64Ptr(3), Name: "Partners"},
}

// recordingFetcher returns a FetcherMock saving the url and options of the
// last call and answering with res
func recordingFetcher(res *Response, gotURL *string, gotOpts *RequestOptions) *FetcherMock {
	return &FetcherMock{
		FetchStub: func(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
			*gotURL = url
			*gotOpts = opts
			return res, nil
		},
	}
}

func TestNewClient(t *testing.T) {
	t.Run("MissingSubdomain", func(t *testing.T) {
		_, err := NewClient(Config{Apps: testApps})
		expect.ErrorNonNil(t, err)
	})
	t.Run("Defaults", func(t *testing.T) {
		c := expect.Must(NewClient(Config{Subdomain: "example", Apps: testApps}))(t)
		kc := c.(*kintoneClient)
		if kc.fetcher == nil || kc.files == nil || kc.logger == nil {
			t.Errorf("NewClient() left defaults unset: %+v", kc)
		}
	})
	t.Run("EncodedSession/Verbatim", func(t *testing.T) {
		c := expect.Must(NewClient(Config{Subdomain: "example", Apps: testApps, Session: EncodedCredential("preEncoded")}))(t)
		expect.Equal(t, c.(*kintoneClient).session.String(), "preEncoded")
	})
	t.Run("UserPassSession/Encoded", func(t *testing.T) {
		c := expect.Must(NewClient(Config{Subdomain: "example", Apps: testApps, Session: UserPassCredential("user", "pass")}))(t)
		expect.Equal(t, c.(*kintoneClient).session.String(), "dXNlcjpwYXNz")
	})
	t.Run("RegistryCopied", func(t *testing.T) {
		apps := AppRegistry{"orders": {AppID: 5, APIToken: "t"}}
		c := expect.Must(NewClient(Config{Subdomain: "example", Apps: apps}))(t)
		delete(apps, "orders")
		_, err := c.(*kintoneClient).apps.Lookup("orders")
		expect.ErrorNil(t, err)
	})
}

func TestClient_PreflightErrors(t *testing.T) {
	fetcher := &FetcherMock{
		FetchStub: func(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
			return &Response{StatusCode: http.StatusOK}, nil
		},
	}
	c := expect.Must(NewClient(Config{
		Subdomain: "example",
		Apps:      testApps,
		BasicAuth: UserPassCredential("proxy", "secret"),
		Fetcher:   fetcher,
		Files:     NewFSFileSource(afero.NewMemMapFs()),
	}))(t)
	ctx := context.Background()

	calls := []struct {
		name string
		call func(app string) (*Response, error)
	}{
		{name: "Create", call: func(app string) (*Response, error) { return c.Create(ctx, app, []Record{}) }},
		{name: "Search", call: func(app string) (*Response, error) { return c.Search(ctx, app, "") }},
		{name: "Update", call: func(app string) (*Response, error) { return c.Update(ctx, app, []Record{}) }},
		{name: "Destroy", call: func(app string) (*Response, error) { return c.Destroy(ctx, app, []int64{1}) }},
		{name: "Upload", call: func(app string) (*Response, error) { return c.Upload(ctx, app, "/a.png") }},
	}
	for _, tc := range calls {
		t.Run(tc.name+"/UnknownApp", func(t *testing.T) {
			res, err := tc.call("invoices")
			expect.ErrorAs[*ConfigurationError]()(t, err)
			if res != nil {
				t.Errorf("Unexpected response: %+v", res)
			}
		})
		t.Run(tc.name+"/NoCredentials", func(t *testing.T) {
			res, err := tc.call("partners")
			expect.ErrorAs[*AuthenticationError]()(t, err)
			if res != nil {
				t.Errorf("Unexpected response: %+v", res)
			}
		})
	}
	expect.Equal(t, fetcher.FetchCalled, int32(0))
}

func TestClient_Records(t *testing.T) {
	session := UserPassCredential("user", "pass")
	records := []Record{
		{"title": map[string]interface{}{"value": "hello"}},
	}
	wantBody, _ := json.Marshal(map[string]interface{}{"app": 5, "records": records})
	wantGuestBody, _ := json.Marshal(map[string]interface{}{"app": 12, "records": records})

	tests := []struct {
		name      string
		call      func(c Client) (*Response, error)
		wantURL   string
		wantOpts  RequestOptions
		strict    bool
		wantQuery url.Values
	}{
		{
			name: "Create",
			call: func(c Client) (*Response, error) {
				return c.Create(context.Background(), "orders", records)
			},
			wantURL: "https://example.cybozu.com/k/v1/records.json",
			wantOpts: RequestOptions{
				Method: http.MethodPost,
				Headers: map[string]string{
					"X-Cybozu-Authorization": session.String(),
					"X-Cybozu-API-Token":     "orders-token",
				},
				ContentType:        "application/json",
				Payload:            wantBody,
				MuteHTTPExceptions: true,
			},
		},
		{
			name: "Update/GuestSpace/Strict",
			call: func(c Client) (*Response, error) {
				return c.Update(context.Background(), "partners", records)
			},
			strict:  true,
			wantURL: "https://example.cybozu.com/k/guest/3/v1/records.json",
			wantOpts: RequestOptions{
				Method: http.MethodPut,
				Headers: map[string]string{
					"X-Cybozu-Authorization": session.String(),
				},
				ContentType: "application/json",
				Payload:     wantGuestBody,
			},
		},
		{
			name: "Search",
			call: func(c Client) (*Response, error) {
				return c.Search(context.Background(), "orders", `Status = "Open" and Amount > 100 order by $id`)
			},
			wantURL: "https://example.cybozu.com/k/v1/records.json?app=5&query=Status%20%3D%20%22Open%22%20and%20Amount%20%3E%20100%20order%20by%20%24id",
			wantOpts: RequestOptions{
				Method: http.MethodGet,
				Headers: map[string]string{
					"X-Cybozu-Authorization": session.String(),
					"X-Cybozu-API-Token":     "orders-token",
				},
				MuteHTTPExceptions: true,
			},
			wantQuery: url.Values{
				"app":   {"5"},
				"query": {`Status = "Open" and Amount > 100 order by $id`},
			},
		},
		{
			name: "Destroy",
			call: func(c Client) (*Response, error) {
				return c.Destroy(context.Background(), "orders", []int64{101, 102, 103})
			},
			wantURL: "https://example.cybozu.com/k/v1/records.json?app=5&ids[0]=101&ids[1]=102&ids[2]=103",
			wantOpts: RequestOptions{
				Method: http.MethodDelete,
				Headers: map[string]string{
					"X-Cybozu-Authorization": session.String(),
					"X-Cybozu-API-Token":     "orders-token",
				},
				MuteHTTPExceptions: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotURL string
			var gotOpts RequestOptions
			want := &Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}
			c := expect.Must(NewClient(Config{
				Subdomain:        "example",
				Apps:             testApps,
				Session:          session,
				Fetcher:          recordingFetcher(want, &gotURL, &gotOpts),
				StrictHTTPStatus: tt.strict,
			}))(t)

			res, err := tt.call(c)
			expect.ErrorNil(t, err)
			if res != want {
				t.Errorf("Response not passed through unmodified: %+v", res)
			}
			expect.Equal(t, gotURL, tt.wantURL)
			expect.Equal(t, gotOpts, tt.wantOpts)

			if tt.wantQuery != nil {
				u := expect.Must(url.Parse(gotURL))(t)
				expect.Equal(t, u.Query(), tt.wantQuery)
			}
		})
	}
}

func TestDestroyQuery(t *testing.T) {
	tests := []struct {
		name  string
		appID int64
		ids   []int64
		want  string
	}{
		{name: "NoIDs", appID: 5, want: "app=5"},
		{name: "InputOrder", appID: 5, ids: []int64{101, 102, 103}, want: "app=5&ids[0]=101&ids[1]=102&ids[2]=103"},
		{name: "IndexNotID", appID: 7, ids: []int64{9, 3}, want: "app=7&ids[0]=9&ids[1]=3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expect.Equal(t, destroyQuery(tt.appID, tt.ids), tt.want)
		})
	}
}

func TestSearchQuery(t *testing.T) {
	queries := []string{
		`Status = "Open"`,
		`title like "a&b=c" limit 10`,
		`name in ("100%", "+1")`,
		"",
	}
	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			values := expect.Must(url.ParseQuery(searchQuery(5, query)))(t)
			expect.Equal(t, values.Get("app"), "5")
			expect.Equal(t, values.Get("query"), query)
		})
	}
	expect.Equal(t, searchQuery(5, `Status = "Open"`), "app=5&query=Status%20%3D%20%22Open%22")
}

// rewriteTransport sends every request to target, keeping path and query
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestClient_Upload(t *testing.T) {
	pngBytes := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	fs := afero.NewMemMapFs()
	expect.Must0(afero.WriteFile(fs, "/upload/a.png", pngBytes, 0o644))(t)

	testServer := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost || req.URL.Path != "/k/guest/3/v1/file.json" {
			rw.WriteHeader(http.StatusNotFound)
			rw.Write([]byte(`{"code":"GAIA_NF01","id":"x","message":"not found"}`))
			return
		}
		if req.Header.Get("X-Cybozu-Authorization") == "" || req.Header.Get("Authorization") == "" {
			rw.WriteHeader(http.StatusUnauthorized)
			rw.Write([]byte(`{"code":"CB_WA01","id":"x","message":"unauthorized"}`))
			return
		}
		file, header, err := req.FormFile("file")
		if err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			rw.Write([]byte(`{"code":"CB_VA01","id":"x","message":"no file"}`))
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		if header.Filename != "a.png" || header.Header.Get("Content-Type") != "image/png" || string(content) != string(pngBytes) {
			rw.WriteHeader(http.StatusBadRequest)
			rw.Write([]byte(`{"code":"CB_VA01","id":"x","message":"bad file"}`))
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte(`{"fileKey":"c15b3870-7505-4ab6-9d8d-b9bdbc74af6d"}`))
	}))
	defer testServer.Close()
	target := expect.Must(url.Parse(testServer.URL))(t)

	newClient := func(t *testing.T, basicAuth Credential, strict bool) Client {
		return expect.Must(NewClient(Config{
			Subdomain: "example",
			Apps:      testApps,
			Session:   UserPassCredential("user", "pass"),
			BasicAuth: basicAuth,
			Fetcher: NewHTTPFetcher(http.Client{
				Transport: rewriteTransport{target: target},
			}, zap.NewNop()),
			Files:            NewFSFileSource(fs),
			StrictHTTPStatus: strict,
		}))(t)
	}

	t.Run("Success", func(t *testing.T) {
		c := newClient(t, UserPassCredential("proxy", "secret"), false)
		res := expect.Must(c.Upload(context.Background(), "partners", "/upload/a.png"))(t)
		expect.Equal(t, res.StatusCode, http.StatusOK)
		expect.Equal(t, expect.Must(ParseFileKey(res))(t), "c15b3870-7505-4ab6-9d8d-b9bdbc74af6d")
	})
	t.Run("MissingFile", func(t *testing.T) {
		c := newClient(t, UserPassCredential("proxy", "secret"), false)
		_, err := c.Upload(context.Background(), "partners", "/upload/missing.png")
		expect.ErrorNonNil(t, err)
	})
	t.Run("ErrorStatus/Muted", func(t *testing.T) {
		c := newClient(t, Credential{}, false)
		res := expect.Must(c.Upload(context.Background(), "partners", "/upload/a.png"))(t)
		expect.Equal(t, res.StatusCode, http.StatusUnauthorized)
	})
	t.Run("ErrorStatus/Strict", func(t *testing.T) {
		c := newClient(t, Credential{}, true)
		res, err := c.Upload(context.Background(), "partners", "/upload/a.png")
		expect.ErrorAs[*APIError]()(t, err)
		if res == nil || res.StatusCode != http.StatusUnauthorized {
			t.Errorf("Upload() response = %+v, want status %d", res, http.StatusUnauthorized)
		}
	})
}
