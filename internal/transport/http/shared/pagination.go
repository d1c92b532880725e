package shared

import (
	"net/http"
	"strconv"
)

// Page is a limit/offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads ?limit and ?offset. Bad or negative values fall back to the defaults and
// limit is clamped to maxLimit.
func ParsePage(r *http.Request, defaultLimit, maxLimit int) Page {
	q := r.URL.Query()
	page := Page{Limit: positiveInt(q.Get("limit"), defaultLimit), Offset: positiveInt(q.Get("offset"), 0)}
	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page
}

// WriteHeaders exposes the total and, when more rows remain, the offset of the next page.
func (p Page) WriteHeaders(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	if next := p.Offset + p.Limit; next < total {
		w.Header().Set("X-Next-Offset", strconv.Itoa(next))
	}
}

func positiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
