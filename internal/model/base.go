package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. It marshals to and
// from ISO-8601 date strings (YYYY-MM-DD) and maps to the SQL DATE type.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s, expected YYYY-MM-DD string", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Date{Time: v.UTC().Truncate(24 * time.Hour)}
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// PageSize is the fixed number of records per list page.
const PageSize = 5

// ListQuery holds the common list parameters shared by the patient and
// assessment listing endpoints.
type ListQuery struct {
	SortBy string
	Order  string
	Page   int
}

// Pagination is the metadata block returned alongside every list page.
type Pagination struct {
	Count       int  `json:"count"`
	NumPages    int  `json:"num_pages"`
	CurrentPage int  `json:"current_page"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Paginate computes the effective page for a total record count: pages
// are 1-based, and out-of-range page numbers clamp to the nearest valid
// page. NumPages is never below 1 so an empty set still has one page.
func Paginate(count, page int) Pagination {
	numPages := (count + PageSize - 1) / PageSize
	if numPages < 1 {
		numPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > numPages {
		page = numPages
	}
	return Pagination{
		Count:       count,
		NumPages:    numPages,
		CurrentPage: page,
		HasNext:     page < numPages,
		HasPrevious: page > 1,
	}
}

// Offset returns the SQL offset for the clamped page.
func (p Pagination) Offset() int {
	return (p.CurrentPage - 1) * PageSize
}
