package cleanup

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"123,456", []int{123, 456}},
		{"44-47", []int{44, 45, 46, 47}},
		{"44-47,300", []int{44, 45, 46, 47, 300}},
		{" 7 , 9-10 ", []int{7, 9, 10}},
		{"5-5", []int{5}},
		{"3,3", []int{3, 3}},
		{"10-8", nil},
		{"10-8,2", []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandIDs(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIDs_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "1,,2", "abc", "4-", "-4", "1-2-3", "0", "12x", "1;2"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseIDs(in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "ParseIDs(%q) error = %v, want *ValidationError", in, err)
		})
	}
}

func TestParseIDs_Specs(t *testing.T) {
	specs, err := ParseIDs("44-240,300")
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.True(t, specs[0].IsRange())
	assert.Equal(t, "44-240", specs[0].String())
	assert.False(t, specs[1].IsRange())
	assert.Equal(t, "300", specs[1].String())
}

func TestValidationErrorMessage(t *testing.T) {
	_, err := ParseIDs("12,ab")
	require.Error(t, err)
	assert.Equal(t, `invalid id "ab": "ab" is not a number`, err.Error())
}

func TestParseIDs_RangeTooWide(t *testing.T) {
	for _, in := range []string{"1-500000000", fmt.Sprintf("1-%d", MaxRangeIDs+1), fmt.Sprintf("2-%d", math.MaxInt)} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseIDs(in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "ParseIDs(%q) error = %v, want *ValidationError", in, err)
			assert.Contains(t, verr.Reason, "range covers more than")
		})
	}

	ids, err := ExpandIDs(fmt.Sprintf("1-%d", MaxRangeIDs))
	require.NoError(t, err)
	assert.Len(t, ids, MaxRangeIDs)
}

func TestExpand_RangeEndingAtMaxInt(t *testing.T) {
	specs, err := ParseIDs(fmt.Sprintf("%d-%d", math.MaxInt-1, math.MaxInt))
	require.NoError(t, err)

	assert.Equal(t, []int{math.MaxInt - 1, math.MaxInt}, Expand(specs))
	assert.Equal(t, []int{math.MaxInt}, Expand([]IDSpec{{Start: math.MaxInt, End: math.MaxInt}}))
}
