package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds page/limit pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Result describes the page that was actually served.
type Result struct {
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage clamps the page number to a 1-based value.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// Offset converts normalized page/limit values into a row offset.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeLimit(p.Limit)
}

// Describe builds the page descriptor for a total row count.
func Describe(params Params, total int64) Result {
	page := NormalizePage(params.Page)
	limit := NormalizeLimit(params.Limit)

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Result{
		Page:       page,
		TotalPages: totalPages,
		HasNext:    int64(page*limit) < total,
		HasPrev:    page > 1,
	}
}
