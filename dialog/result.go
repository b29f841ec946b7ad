package dialog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"contractadmin/table"
)

// ErrBackend is returned when a list payload reports success=false.
var ErrBackend = errors.New("backend reported failure")

// Result is the normalized outcome of a mutation. Any falsy success flag is
// a failure; Message is shown to the user verbatim.
type Result struct {
	Success bool
	Data    json.RawMessage
	Message string
}

// OK builds a successful Result.
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// Failed builds a business failure.
func Failed(message string) Result {
	return Result{Success: false, Message: message}
}

type resultEnvelope struct {
	IsSuccess *bool           `json:"isSuccess"`
	Success   *bool           `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
}

// DecodeResult reads `{isSuccess | success, data?, message?}`.
func DecodeResult(body []byte) (Result, error) {
	var env resultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	ok := false
	switch {
	case env.IsSuccess != nil:
		ok = *env.IsSuccess
	case env.Success != nil:
		ok = *env.Success
	}
	return Result{Success: ok, Data: env.Data, Message: env.Message}, nil
}

// NormalizeList accepts either a bare JSON array or `{success, data}` and
// returns the rows.
func NormalizeList(body []byte) ([]table.Row, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []table.Row{}, nil
	}
	if body[0] == '[' {
		return decodeRows(body)
	}

	var env resultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return nil, fmt.Errorf("%w: %s", ErrBackend, env.Message)
	}
	if env.IsSuccess != nil && !*env.IsSuccess {
		return nil, fmt.Errorf("%w: %s", ErrBackend, env.Message)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []table.Row{}, nil
	}
	return decodeRows(data)
}

func decodeRows(body []byte) ([]table.Row, error) {
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	rows := make([]table.Row, len(raw))
	for i, r := range raw {
		rows[i] = table.Row(r)
	}
	return rows, nil
}
