package kintoneclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// AppEntry holds the connection parameters of one kintone app
type AppEntry struct {
	AppID int64 `json:"appId"`
	// GuestID is the guest space the app lives in, nil for regular apps
	GuestID *int64 `json:"guestId,omitempty"`
	Name    string `json:"name"`
	// APIToken may hold several comma separated tokens, it is sent verbatim
	APIToken string `json:"apiToken,omitempty"`
}

// AppRegistry maps the caller's logical app names to their AppEntry
type AppRegistry map[string]AppEntry

// Lookup returns the entry registered under name
func (r AppRegistry) Lookup(name string) (AppEntry, error) {
	app, ok := r[name]
	if !ok {
		return AppEntry{}, &ConfigurationError{App: name}
	}
	return app, nil
}

// LoadAppRegistry reads a JSON encoded AppRegistry from path
// Example:
//
//	{
//	    "orders": {"appId": 5, "name": "Orders", "apiToken": "abc,def"},
//	    "partners": {"appId": 12, "guestId": 3, "name": "Partners"}
//	}
func LoadAppRegistry(fs afero.Fs, path string) (AppRegistry, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading app registry: %w", err)
	}
	var apps AppRegistry
	if err := json.Unmarshal(raw, &apps); err != nil {
		return nil, fmt.Errorf("decoding app registry %s: %w", path, err)
	}
	return apps, nil
}

// baseURL returns the host part of every kintone URL. Subdomains already
// ending in ".com" are taken as full host names.
func baseURL(subdomain string) string {
	if strings.HasSuffix(subdomain, ".com") {
		return "https://" + subdomain
	}
	return "https://" + subdomain + ".cybozu.com"
}

// endpoint returns the REST API prefix for app, e.g.
// https://example.cybozu.com/k/v1 or https://example.cybozu.com/k/guest/3/v1
func endpoint(subdomain string, app AppEntry) string {
	if app.GuestID == nil {
		return baseURL(subdomain) + "/k/v1"
	}
	return baseURL(subdomain) + "/k/guest/" + strconv.FormatInt(*app.GuestID, 10) + "/v1"
}
