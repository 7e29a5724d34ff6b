package http

import (
	"net/http"
	"smartpark/pkg/config"
	apperrors "smartpark/pkg/errors"
	"strconv"
)

// ExtractLimitOffset reads history paging from the query string. Missing
// values take the defaults and an oversized limit is clamped. Values that are
// not whole numbers, or are negative, are rejected with the offending parameter
// in the error details.
func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit, err := queryInt(query.Get("limit"), "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(query.Get("offset"), "offset")
	if err != nil {
		return 0, 0, err
	}

	return config.NormalizePaginationLimit(int(min(limit, int64(config.DefaultPaginationLimit)))),
		config.NormalizeOffset(offset),
		nil
}

func queryInt(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidInput("invalid "+name+" parameter: "+raw).
			WithDetails(map[string]any{"parameter": name, "value": raw})
	}
	return v, nil
}
