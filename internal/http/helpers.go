package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"money/internal/core"
	"money/internal/log"
)

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode JSON response", log.FieldError, err)
	}
}

// listCacheKey identifies a rendered list by ledger revision and filter.
func listCacheKey(revision uint64, f core.Filter) string {
	return strconv.FormatUint(revision, 10) + ":" + string(f)
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
