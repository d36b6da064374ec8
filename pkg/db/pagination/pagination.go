package pagination

import (
	"encoding/base64"
	"encoding/json"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

// Pagination is the cursor page request accepted by list endpoints.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit clamps the requested page size into the allowed range.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// Cursor marks the last row of a page. Snowflake IDs are time-ordered, so an
// ID cursor pages in creation order.
type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// BuildPage trims an over-fetched result set (limit+1 rows) to the page and
// reports whether more rows remain past the cursor.
func BuildPage[T any](data []T, limit int, extractCursor func(*T) string) ([]T, PageInfo, error) {
	if len(data) == 0 {
		return data, PageInfo{}, nil
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	info := PageInfo{HasMore: hasMore}
	if hasMore {
		token, err := EncodeCursor(Cursor{ID: extractCursor(&data[len(data)-1])})
		if err != nil {
			return nil, PageInfo{}, err
		}
		info.NextPageToken = token
	}

	return data, info, nil
}
