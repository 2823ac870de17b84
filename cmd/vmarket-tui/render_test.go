// ABOUTME: Tests for terminal formatting helpers.
// ABOUTME: Rupee amounts with thousands separators.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLKR(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "Rs 0"},
		{950, "Rs 950"},
		{4500, "Rs 4,500"},
		{985000, "Rs 985,000"},
		{4850000, "Rs 4,850,000"},
		{13900000, "Rs 13,900,000"},
		{1234567.6, "Rs 1,234,568"},
		{-5, "Rs 0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatLKR(tt.amount), "amount %v", tt.amount)
	}
}
