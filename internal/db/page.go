package db

const (
	// DefaultPageLimit は一覧取得で件数が未指定の場合の既定値。
	DefaultPageLimit = 10
	// MaxPageLimit は一覧取得で1回に返す最大件数。
	MaxPageLimit = 100
)

// Page は一覧取得のオフセットと件数。
type Page struct {
	Skip  int
	Limit int
}

// NewPage は範囲外の値を補正したPageを返す。
func NewPage(skip, limit int) Page {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Skip: skip, Limit: limit}
}

// HasMore はtotal件のうちこのページより後ろに要素が残っているかを返す。
func (p Page) HasMore(total int64) bool {
	return int64(p.Skip+p.Limit) < total
}
