package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Outcome holds exactly one of Result or Err.
type Outcome struct {
	Result *CheckResult
	Err    *CheckError
}

// BatchResult is one Outcome per requested host, in request order.
type BatchResult []Outcome

func OK(r CheckResult) Outcome     { return Outcome{Result: &r} }
func Failed(e *CheckError) Outcome { return Outcome{Err: e} }
func (o Outcome) Succeeded() bool  { return o.Result != nil && o.Err == nil }

// Hostname returns the host the outcome belongs to.
func (o Outcome) Hostname() string {
	switch {
	case o.Err != nil:
		return o.Err.Hostname
	case o.Result != nil:
		return o.Result.Hostname
	}
	return ""
}

// CheckedAt is when the check that produced the outcome finished.
func (o Outcome) CheckedAt() time.Time {
	switch {
	case o.Err != nil:
		return o.Err.CheckedAt
	case o.Result != nil:
		return o.Result.CheckedAt
	}
	return time.Time{}
}

// Status is "ok" or the error kind.
func (o Outcome) Status() string {
	if o.Err != nil {
		return string(o.Err.Kind)
	}
	return StatusOK
}

type resultJSON struct {
	Status string `json:"status"`
	*CheckResult
}

type errorJSON struct {
	Status string `json:"status"`
	*CheckError
}

// MarshalJSON flattens the populated member and adds a status discriminator.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch {
	case o.Err != nil:
		return json.Marshal(errorJSON{Status: StatusError, CheckError: o.Err})
	case o.Result != nil:
		return json.Marshal(resultJSON{Status: StatusOK, CheckResult: o.Result})
	}
	return nil, errors.New("outcome has neither result nor error")
}

func (o *Outcome) UnmarshalJSON(b []byte) error {
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	switch probe.Status {
	case StatusError:
		var e CheckError
		if err := json.Unmarshal(b, &e); err != nil {
			return err
		}
		*o = Outcome{Err: &e}
	case StatusOK:
		var r CheckResult
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		*o = Outcome{Result: &r}
	default:
		return fmt.Errorf("unknown outcome status %q", probe.Status)
	}
	return nil
}
