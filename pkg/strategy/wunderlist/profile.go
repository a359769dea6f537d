package wunderlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// errNotObject is returned when a profile document is valid JSON but not an object
var errNotObject = errors.New("profile document is not a JSON object")

// Email is a single address attached to a profile
type Email struct {
	Value string `json:"value"`
}

// Profile is the normalized Wunderlist user profile
type Profile struct {
	Provider    string         `json:"provider"`
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	Emails      []Email        `json:"emails,omitempty"`
	Raw         string         `json:"_raw,omitempty"`  // Response body as received
	Parsed      map[string]any `json:"_json,omitempty"` // Decoded response body
}

// ParseProfile normalizes a Wunderlist user document. data may be the decoded
// document (map[string]any) or its JSON serialization (string or []byte).
// Provider, Raw and Parsed are left for the caller to fill in.
func ParseProfile(data any) (*Profile, error) {
	var doc map[string]any
	switch v := data.(type) {
	case map[string]any:
		doc = v
	case string:
		decoded, err := decodeDocument([]byte(v))
		if err != nil {
			return nil, err
		}
		doc = decoded
	case []byte:
		decoded, err := decodeDocument(v)
		if err != nil {
			return nil, err
		}
		doc = decoded
	default:
		return nil, fmt.Errorf("unsupported profile data type %T", data)
	}

	profile := &Profile{
		ID:          stringValue(doc["id"]),
		DisplayName: stringValue(doc["name"]),
	}

	if email := doc["email"]; truthy(email) {
		profile.Emails = []Email{{Value: stringValue(email)}}
	}

	return profile, nil
}

// decodeDocument decodes a single JSON object. Numbers are kept as
// json.Number so numeric ids keep their exact decimal form.
func decodeDocument(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("unexpected data after JSON document")
	}
	if doc == nil {
		return nil, errNotObject
	}
	return doc, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// truthy reports whether v would count as set in the provider's own client
// libraries: non-empty strings, non-zero numbers, true, and any object.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
