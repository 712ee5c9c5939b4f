// Package filter narrows a list of items by keyword, type and location.
package filter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

// Query holds the optional criteria. An empty field places no constraint.
type Query struct {
	Keyword  string
	Type     models.ItemType
	Location string
}

// Empty reports whether q matches every item.
func (q Query) Empty() bool {
	return q.Keyword == "" && q.Type == "" && q.Location == ""
}

// FromValues reads keyword, type and location from URL query values.
// Keyword and location are kept verbatim, so "?keyword=%20" matches only
// text containing a space, as it does in the browser filter.
// A type other than lost or found is an error.
func FromValues(v url.Values) (Query, error) {
	q := Query{
		Keyword:  v.Get("keyword"),
		Type:     models.ItemType(strings.ToLower(strings.TrimSpace(v.Get("type")))),
		Location: v.Get("location"),
	}
	if q.Type != "" && !q.Type.Valid() {
		return Query{}, fmt.Errorf("unknown item type %q", v.Get("type"))
	}
	return q, nil
}

// Apply returns the items matching every criterion in q, in their original
// order. Text comparisons are case-insensitive substring matches; the keyword
// may appear in either the title or the description.
func Apply(items []*models.Item, q Query) []*models.Item {
	keyword := strings.ToLower(q.Keyword)
	location := strings.ToLower(q.Location)

	out := make([]*models.Item, 0, len(items))
	for _, it := range items {
		if q.Type != "" && it.Type != q.Type {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(it.Location), location) {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(it.Title), keyword) &&
			!strings.Contains(strings.ToLower(it.Description), keyword) {
			continue
		}
		out = append(out, it)
	}
	return out
}
