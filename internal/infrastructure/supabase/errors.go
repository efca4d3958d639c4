package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/quantara/console/internal/core/domain"
)

// RemoteError is a failed response from the identity service or record store.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("remote status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote status %d (%s): %s", e.Status, e.Code, e.Message)
}

// pgInsufficientPrivilege is the Postgres code for a row-level security or
// grant denial.
const pgInsufficientPrivilege = "42501"

// classifyRecord maps record-store permission denials onto
// domain.ErrForbidden while keeping the RemoteError reachable with errors.As.
func classifyRecord(err error) error {
	var re *RemoteError
	if !errors.As(err, &re) {
		return err
	}
	if re.Code == pgInsufficientPrivilege || re.Status == http.StatusForbidden {
		return fmt.Errorf("%w: %w", domain.ErrForbidden, err)
	}
	return err
}

// errorBody covers both GoTrue and PostgREST error shapes.
type errorBody struct {
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
}

func decodeError(resp *http.Response) *RemoteError {
	re := &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return re
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		re.Message = string(raw)
		return re
	}

	var code string
	_ = json.Unmarshal(body.Code, &code) // PostgREST codes are strings, GoTrue's are numbers
	for _, c := range []string{body.ErrorCode, code, body.Error} {
		if c != "" {
			re.Code = c
			break
		}
	}
	for _, m := range []string{body.Msg, body.Message, body.ErrorDescription} {
		if m != "" {
			re.Message = m
			break
		}
	}
	return re
}
