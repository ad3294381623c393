// Package datatable searches, filters, sorts and paginates an in-memory list
// and attaches per-row actions. It does no authorization: it only shapes
// what a guarded service already returned.
package datatable

import (
	"sort"
	"strings"
)

// All is the filter value that disables a column filter.
const All = "all"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Column[T any] struct {
	Key        string
	Value      func(T) string
	Searchable bool
	Filterable bool
	Sortable   bool
	// Less overrides the default string comparison when sorting.
	Less func(a, b T) bool
}

type Action[T any] struct {
	Name     string
	Label    string
	Hidden   func(T) bool
	Disabled func(T) bool
}

type Query struct {
	Search   string
	Filters  map[string]string
	SortBy   string
	SortDesc bool
	Page     int
	PageSize int
}

type RowAction struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

type Row[T any] struct {
	Item    T           `json:"item"`
	Actions []RowAction `json:"actions,omitempty"`
}

type Page[T any] struct {
	Rows       []Row[T] `json:"rows"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

// Items returns the page's items without their actions.
func (p Page[T]) Items() []T {
	out := make([]T, 0, len(p.Rows))
	for _, r := range p.Rows {
		out = append(out, r.Item)
	}
	return out
}

type Table[T any] struct {
	columns []Column[T]
	actions []Action[T]
}

func New[T any](columns []Column[T], actions ...Action[T]) *Table[T] {
	return &Table[T]{columns: columns, actions: actions}
}

func (t *Table[T]) column(key string) (Column[T], bool) {
	for _, c := range t.columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Apply never modifies items. Filters and sort keys naming unknown or
// non-filterable/non-sortable columns are ignored.
func (t *Table[T]) Apply(items []T, q Query) Page[T] {
	page, size := normalize(q.Page, q.PageSize)

	matched := make([]T, 0, len(items))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, it := range items {
		if needle != "" && !t.matchesSearch(it, needle) {
			continue
		}
		if !t.matchesFilters(it, q.Filters) {
			continue
		}
		matched = append(matched, it)
	}

	if c, ok := t.column(q.SortBy); ok && c.Sortable {
		less := c.Less
		if less == nil {
			less = func(a, b T) bool { return strings.ToLower(c.Value(a)) < strings.ToLower(c.Value(b)) }
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if q.SortDesc {
				return less(matched[j], matched[i])
			}
			return less(matched[i], matched[j])
		})
	}

	total := len(matched)
	totalPages := (total + size - 1) / size
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	rows := make([]Row[T], 0, end-start)
	for _, it := range matched[start:end] {
		rows = append(rows, Row[T]{Item: it, Actions: t.rowActions(it)})
	}

	return Page[T]{
		Rows:       rows,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}
}

func normalize(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func (t *Table[T]) matchesSearch(it T, needle string) bool {
	for _, c := range t.columns {
		if c.Searchable && strings.Contains(strings.ToLower(c.Value(it)), needle) {
			return true
		}
	}
	return false
}

func (t *Table[T]) matchesFilters(it T, filters map[string]string) bool {
	for key, want := range filters {
		if want == "" || strings.EqualFold(want, All) {
			continue
		}
		c, ok := t.column(key)
		if !ok || !c.Filterable {
			continue
		}
		if !strings.EqualFold(c.Value(it), want) {
			return false
		}
	}
	return true
}

func (t *Table[T]) rowActions(it T) []RowAction {
	var out []RowAction
	for _, a := range t.actions {
		if a.Hidden != nil && a.Hidden(it) {
			continue
		}
		label := a.Label
		if label == "" {
			label = a.Name
		}
		out = append(out, RowAction{
			Name:     a.Name,
			Label:    label,
			Disabled: a.Disabled != nil && a.Disabled(it),
		})
	}
	return out
}
