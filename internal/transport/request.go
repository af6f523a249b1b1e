package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
)

// maxErrorBody bounds how much of a failed response is kept in an APIError.
const maxErrorBody = 512

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// DecodeResponse decodes a JSON response into target. Any non-2xx status
// becomes an APIError. A nil target only checks the status.
func DecodeResponse(resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if !IsSuccess(resp.StatusCode) {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.URL.String()
		}
		return errors.NewAPIError(endpoint, resp.StatusCode, msg)
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}
