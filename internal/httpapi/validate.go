package httpapi

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hamed0406/tlscheck/internal/probe"
)

const (
	msgInvalidHost  = "Each domain must be a valid hostname"
	msgInvalidQuery = "Domain must be a valid hostname"
	msgNotArray     = "Domains must be an array"
)

// fieldError mirrors the error objects API clients already parse:
// {"type":"field","value":..,"msg":..,"path":..,"location":..}.
type fieldError struct {
	Type     string `json:"type"`
	Value    any    `json:"value,omitempty"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

type validationResponse struct {
	Errors []fieldError `json:"errors"`
}

func validateSingle(host string, present bool, defaultPort int) []fieldError {
	if !present || host == "" {
		return []fieldError{{Type: "field", Msg: msgInvalidQuery, Path: "domain", Location: "query"}}
	}
	if _, err := probe.ParseTarget(host, defaultPort); err != nil {
		return []fieldError{{Type: "field", Value: host, Msg: msgInvalidQuery, Path: "domain", Location: "query"}}
	}
	return nil
}

// decodeDomains reads {"domains":[...]} and validates every entry before
// any check runs, so a bad entry rejects the whole batch.
func decodeDomains(body io.Reader, maxBatch, defaultPort int) ([]string, []fieldError) {
	var payload struct {
		Domains json.RawMessage `json:"domains"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, []fieldError{{Type: "field", Msg: "Request body must be a JSON object", Path: "", Location: "body"}}
	}

	var raw []json.RawMessage
	if len(payload.Domains) == 0 || json.Unmarshal(payload.Domains, &raw) != nil || raw == nil {
		return nil, []fieldError{{Type: "field", Value: rawValue(payload.Domains), Msg: msgNotArray, Path: "domains", Location: "body"}}
	}
	if maxBatch > 0 && len(raw) > maxBatch {
		return nil, []fieldError{{
			Type:     "field",
			Msg:      fmt.Sprintf("At most %d domains per request", maxBatch),
			Path:     "domains",
			Location: "body",
		}}
	}

	hosts := make([]string, 0, len(raw))
	var errs []fieldError
	for i, item := range raw {
		var host string
		path := fmt.Sprintf("domains[%d]", i)
		if err := json.Unmarshal(item, &host); err != nil {
			errs = append(errs, fieldError{Type: "field", Value: rawValue(item), Msg: msgInvalidHost, Path: path, Location: "body"})
			continue
		}
		if _, err := probe.ParseTarget(host, defaultPort); err != nil {
			errs = append(errs, fieldError{Type: "field", Value: host, Msg: msgInvalidHost, Path: path, Location: "body"})
			continue
		}
		hosts = append(hosts, host)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return hosts, nil
}

func rawValue(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}
