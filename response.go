package kintoneclient

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the raw transport response of an operation. The client never
// parses it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is in the 2xx range
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ParseFileKey extracts the file key from the response of an Upload call.
// The key can be used as the value of an attachment field of a record.
func ParseFileKey(res *Response) (string, error) {
	if res == nil {
		return "", errors.New("nil response")
	}
	var fileRes fileResponse
	if err := json.Unmarshal(res.Body, &fileRes); err != nil {
		return "", err
	}
	if fileRes.FileKey == "" {
		return "", errors.New("response does not contain a file key")
	}
	return fileRes.FileKey, nil
}
