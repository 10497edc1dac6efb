package main

import (
	"reflect"
	"testing"
)

func TestParseFloats(t *testing.T) {
	cases := []struct {
		in   string
		want []float64
		err  bool
	}{
		{"0.5,1,2", []float64{0.5, 1, 2}, false},
		{" 0.1 , 0.2 ", []float64{0.1, 0.2}, false},
		{"1,", []float64{1}, false},
		{"", nil, true},
		{"a,b", nil, true},
	}
	for _, tc := range cases {
		got, err := parseFloats(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("parseFloats(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFloats(%q): %v", tc.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseFloats(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
