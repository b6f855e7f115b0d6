package dashboard

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/report"
	"github.com/JSEduardoM/Equipo-70-DataScience/pkg/segment"
)

var ErrBadFilter = errors.New("dashboard: invalid filter")

// Filter selects customers by tier and churn label. An empty set matches all.
type Filter struct {
	Segments map[segment.RiskSegment]bool
	Churn    map[int]bool
}

// ParseFilter reads repeatable "segment" and "churn" query parameters.
// Values may also be comma separated.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{Segments: map[segment.RiskSegment]bool{}, Churn: map[int]bool{}}
	for _, raw := range values(q, "segment") {
		s, err := segment.Parse(raw)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: segment %q", ErrBadFilter, raw)
		}
		f.Segments[s] = true
	}
	for _, raw := range values(q, "churn") {
		switch raw {
		case "0":
			f.Churn[0] = true
		case "1":
			f.Churn[1] = true
		default:
			return Filter{}, fmt.Errorf("%w: churn %q", ErrBadFilter, raw)
		}
	}
	return f, nil
}

func values(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (f Filter) Match(c report.Customer) bool {
	if len(f.Segments) > 0 && !f.Segments[c.Segment] {
		return false
	}
	if len(f.Churn) > 0 && !f.Churn[c.Churn] {
		return false
	}
	return true
}

// Apply keeps the matching customers in their original order.
func (f Filter) Apply(cs []report.Customer) []report.Customer {
	out := make([]report.Customer, 0, len(cs))
	for _, c := range cs {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}
