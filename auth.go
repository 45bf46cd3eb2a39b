package kintoneclient

import (
	"encoding/base64"
)

const (
	headerSessionAuth = "X-Cybozu-Authorization"
	headerAPIToken    = "X-Cybozu-API-Token"
	headerBasicAuth   = "Authorization"
)

// Credential is an encoded "user:pass" token as kintone expects it in the
// X-Cybozu-Authorization and Authorization headers. The zero value means no
// credential.
type Credential struct {
	encoded string
}

// EncodedCredential returns a Credential from an already base64 encoded
// token. The token is used verbatim.
func EncodedCredential(token string) Credential {
	return Credential{encoded: token}
}

// UserPassCredential returns a Credential holding base64("user:pass").
func UserPassCredential(user, pass string) Credential {
	return Credential{encoded: base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))}
}

// IsSet reports whether the credential carries a token.
func (c Credential) IsSet() bool {
	return c.encoded != ""
}

// String returns the encoded token.
func (c Credential) String() string {
	return c.encoded
}

// buildAuthHeaders returns the authentication headers for a request to app.
// Basic auth is only ever sent alongside the session credential, and the API
// token may be sent together with both.
func buildAuthHeaders(app string, session, basic Credential, apiToken string) (map[string]string, error) {
	if !session.IsSet() && apiToken == "" {
		return nil, &AuthenticationError{App: app}
	}

	headers := map[string]string{}
	if session.IsSet() {
		headers[headerSessionAuth] = session.encoded
		if basic.IsSet() {
			headers[headerBasicAuth] = "Basic " + basic.encoded
		}
	}
	if apiToken != "" {
		headers[headerAPIToken] = apiToken
	}
	return headers, nil
}
