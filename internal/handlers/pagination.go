package handlers

import (
	"math"
	"strconv"

	"grocery/internal/apperr"
)

const maxPageSize = 200

// maxPage keeps (page-1)*limit inside int64 for any accepted limit.
const maxPage = math.MaxInt64 / maxPageSize

// parsePaginationParams reads page and limit. An absent limit is returned as
// zero so the service applies its own default.
func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(0)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 || p > maxPage {
			return 0, 0, apperr.InvalidState("invalid page")
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, apperr.InvalidState("invalid limit")
		}
		if l > maxPageSize {
			l = maxPageSize
		}
		limit = l
	}

	return page, limit, nil
}

func parseOptionalFloat(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperr.InvalidState("invalid " + name)
	}
	return &v, nil
}
