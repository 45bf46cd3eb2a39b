package kintoneclient

import (
	"fmt"
	"sort"
	"strings"
)

/*********************************************/
/*  kintone REST API request/response types  */
/*********************************************/

// Record is a single kintone record in its JSON form, e.g.
// {"title": {"value": "hello"}} for creation or
// {"id": 1, "record": {"title": {"value": "hello"}}} for updates
type Record map[string]interface{}

type recordsRequest struct {
	App     int64    `json:"app"`
	Records []Record `json:"records"`
}

// fileResponse is the body of a successful file.json upload
type fileResponse struct {
	FileKey string `json:"fileKey"`
}

/****************************************/
/*  kintone REST API error response     */
/****************************************/

// APIError represents an error response from kintone REST API endpoints
// Example:
//
//	{
//	    "code": "CB_VA01",
//	    "id": "1505999166-897850006",
//	    "message": "Missing or invalid input.",
//	    "errors": {
//	        "record.title.value": {
//	            "messages": ["Required."]
//	        }
//	    }
//	}
type APIError struct {
	StatusCode int                      `json:"-"`
	Code       string                   `json:"code"`
	ID         string                   `json:"id"`
	Message    string                   `json:"message"`
	Errors     map[string]FieldMessages `json:"errors,omitempty"`
}

type FieldMessages struct {
	Messages []string `json:"messages"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("status: %d, error code: %s, message: %s", e.StatusCode, e.Code, e.Message)
	if len(e.Errors) == 0 {
		return msg
	}

	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var details []string
	for _, field := range fields {
		details = append(details, fmt.Sprintf("%s: %s", field, strings.Join(e.Errors[field].Messages, ",")))
	}
	return msg + ", fields: " + strings.Join(details, "|")
}
