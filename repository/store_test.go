package repository

import (
	"math"
	"testing"
)

func TestPageOffset(t *testing.T) {
	cases := []struct {
		page Page
		want int
	}{
		{Page{}, 0},
		{Page{Page: 1, Limit: 10}, 0},
		{Page{Page: 3, Limit: 10}, 20},
		{Page{Page: 5, Limit: 0}, 0},
		{Page{Page: math.MaxInt, Limit: 100}, math.MaxInt},
		{Page{Page: math.MaxInt / 10, Limit: 100}, math.MaxInt},
	}
	for _, c := range cases {
		if got := c.page.Offset(); got != c.want {
			t.Errorf("%+v.Offset() = %d, want %d", c.page, got, c.want)
		}
	}
}
