package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildWhere(t *testing.T) {
	cat := "3f1a7c52-3c1e-4c44-9a0e-0c8b0c6d8f10"
	lo, hi := price("10"), price("50")

	tests := []struct {
		name  string
		c     Criteria
		where string
		args  int
	}{
		{"empty", Criteria{}, "", 0},
		{"category", Criteria{CategoryID: &cat}, " WHERE p.category_id = $1", 1},
		{"max only", Criteria{MaxPrice: &hi}, " WHERE p.price <= $1", 1},
		{"all", Criteria{CategoryID: &cat, MinPrice: &lo, MaxPrice: &hi},
			" WHERE p.category_id = $1 AND p.price >= $2 AND p.price <= $3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildWhere(tt.c)
			assert.Equal(t, tt.where, where)
			assert.Len(t, args, tt.args)
		})
	}
}
