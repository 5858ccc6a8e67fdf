package tool

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"absent", ``, 5},
		{"null", `null`, 5},
		{"string digits", `"3"`, 3},
		{"string padded", `" 7 "`, 7},
		{"string plus sign", `"+4"`, 4},
		{"string negative", `"-2"`, -2},
		{"string zero", `"0"`, 0},
		{"string word", `"abc"`, 5},
		{"string empty", `""`, 5},
		{"string float", `"2.5"`, 5},
		{"string beyond int range clamps", `"99999999999999999999"`, math.MaxInt32},
		{"string beyond negative int range clamps", `"-99999999999999999999"`, math.MinInt32},
		{"string above int32 clamps", `"3000000000"`, math.MaxInt32},
		{"number", `8`, 8},
		{"number float truncates", `2.9`, 2},
		{"number negative float truncates toward zero", `-2.9`, -2},
		{"bool", `true`, 5},
		{"object", `{"n":3}`, 5},
		{"array", `[3]`, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLimit(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("ParseLimit(%s) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseLimitHugeNumberClamped(t *testing.T) {
	if got := ParseLimit(json.RawMessage(`1e300`)); got <= 0 {
		t.Errorf("ParseLimit(1e300) = %d, want a large positive value", got)
	}
}

func TestParseLimitHugeStringMatchesNumber(t *testing.T) {
	str := ParseLimit(json.RawMessage(`"99999999999999999999"`))
	num := ParseLimit(json.RawMessage(`1e20`))
	if str != num {
		t.Errorf("string limit = %d, number limit = %d, want equal", str, num)
	}
}
