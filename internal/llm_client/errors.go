package llm_client

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"
)

var ErrNotInitialized = errors.New("llm provider not initialized")

var authWording = []string{
	"unauthorized",
	"forbidden",
	"invalid api key",
	"api key not valid",
	"permission denied",
	"authentication",
}

// IsAuthError reports whether err means the backend rejected our credentials.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := statusCode(err); ok && (code == http.StatusUnauthorized || code == http.StatusForbidden) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, w := range authWording {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

func statusCode(err error) (int, bool) {
	var gv genai.APIError
	if errors.As(err, &gv) {
		return gv.Code, true
	}
	var gp *genai.APIError
	if errors.As(err, &gp) && gp != nil {
		return gp.Code, true
	}
	var ov api.StatusError
	if errors.As(err, &ov) {
		return ov.StatusCode, true
	}
	var op *api.StatusError
	if errors.As(err, &op) && op != nil {
		return op.StatusCode, true
	}
	return 0, false
}
