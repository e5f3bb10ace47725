package pagination

import (
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		perPage int
		max     int
		want    Params
	}{
		{name: "defaults", want: Params{Page: 1, PerPage: DefaultPerPage}},
		{name: "negative page", page: -3, perPage: 10, want: Params{Page: 1, PerPage: 10}},
		{name: "capped", page: 2, perPage: 500, want: Params{Page: 2, PerPage: MaxPerPage}},
		{name: "custom max", page: 1, perPage: 60, max: 50, want: Params{Page: 1, PerPage: 50}},
		{name: "huge page", page: 1 << 62, perPage: 100, want: Params{Page: math.MaxInt32/100 + 1, PerPage: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.page, tt.perPage, tt.max))
		})
	}
}

func TestFromQuery(t *testing.T) {
	q := url.Values{"page": {"3"}, "page_size": {"abc"}}
	p := FromQuery(q, 0)
	assert.Equal(t, Params{Page: 3, PerPage: DefaultPerPage}, p)
	assert.Equal(t, 40, p.Offset())
}

func TestOffset_FitsInt32(t *testing.T) {
	for _, page := range []int{1 << 62, math.MaxInt, 21474838} {
		p := FromQuery(url.Values{"page": {strconv.Itoa(page)}, "page_size": {"100"}}, 0)
		assert.GreaterOrEqual(t, p.Offset(), 0)
		assert.LessOrEqual(t, p.Offset(), math.MaxInt32)
	}
}

func TestNew(t *testing.T) {
	d := New(Params{Page: 2, PerPage: 20}, 45)
	assert.Equal(t, 3, d.TotalPages)
	assert.True(t, d.HasPrevious)
	assert.True(t, d.HasNext)

	last := New(Params{Page: 3, PerPage: 20}, 45)
	assert.False(t, last.HasNext)

	empty := New(Params{Page: 1, PerPage: 20}, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrevious)
}
