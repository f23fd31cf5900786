package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
)

// QueryLimit reads a positive integer "limit" query parameter, falling back
// to def when absent.
func QueryLimit(r *http.Request, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
	}
	return value, nil
}
