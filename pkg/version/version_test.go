package version

import (
	"math"
	"reflect"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		input string
		want  Key
	}{
		{"1.10.2", Key{{Num: 1}, {Num: 10}, {Num: 2}}},
		{"2.0a", Key{{Num: 2}, {Num: 0, Text: "a"}}},
		{"v1-beta", Key{{Text: "v"}, {Num: 1}, {Text: "beta"}}},
		{"GRCh38/gencode_v44", Key{{Text: "GRCh"}, {Num: 38}, {Text: "gencode"}, {Text: "v"}, {Num: 44}}},
		{"", Key{}},
	}

	for _, tt := range tests {
		got := ParseKey(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseKey(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseKey_HugeNumberSaturates(t *testing.T) {
	key := ParseKey("123456789012345678901234567890")
	if len(key) != 1 || key[0].Num != math.MaxUint64 {
		t.Fatalf("Expected saturated component, got %v", key)
	}
	if key[0].Digits != "123456789012345678901234567890" {
		t.Errorf("Expected overflowing digits to be kept, got %q", key[0].Digits)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.10", "1.9", 1},
		{"1.2", "1.10", -1},
		{"2.0", "2.0a", -1},
		{"2.0a", "2.0b", -1},
		{"1.0", "1.0.1", -1},
		{"10", "9", 1},
		{"3.1", "3.1", 0},
		{"1-0", "1.0", -1},
		{"100000000000000000000", "99999999999999999999", 1},
		{"1.100000000000000000000", "1.18446744073709551615", 1},
	}

	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := Compare(tt.b, tt.a); got != -tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
		}
	}
}

func TestOrder_Descending(t *testing.T) {
	input := []string{"1.2", "1.10", "1.9", "0.9b", "0.9a"}
	got := Order(input, true)
	want := []string{"1.10", "1.9", "1.2", "0.9b", "0.9a"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	if input[0] != "1.2" {
		t.Errorf("Order modified its input: %v", input)
	}
}

func TestOrder_Idempotent(t *testing.T) {
	once := Order([]string{"2.0", "10.1", "2.0.1", "2.0rc1", "1"}, false)
	twice := Order(once, false)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Expected sorting to be idempotent: %v vs %v", once, twice)
	}
}

func TestNewest(t *testing.T) {
	if got := Newest([]string{"1.0", "1.11", "1.2"}); got != "1.11" {
		t.Errorf("Expected 1.11, got %s", got)
	}
	if got := Newest(nil); got != "" {
		t.Errorf("Expected empty string, got %s", got)
	}
}

func TestMatchPrefix(t *testing.T) {
	versions := []string{"2.1.0", "2.0.3", "1.9.0"}

	got, ok := MatchPrefix(versions, "2.*")
	if !ok || got != "2.1.0" {
		t.Errorf("Expected 2.1.0, got %q (ok=%v)", got, ok)
	}

	got, ok = MatchPrefix([]string{"1.9.0", "2.0.3", "2.0.10"}, "2.0.*")
	if !ok || got != "2.0.10" {
		t.Errorf("Expected 2.0.10, got %q (ok=%v)", got, ok)
	}

	if _, ok := MatchPrefix(versions, "3.*"); ok {
		t.Error("Expected no match for 3.*")
	}
}

func TestIsWildcard(t *testing.T) {
	if !IsWildcard("1.*") {
		t.Error("Expected 1.* to be a wildcard")
	}
	if IsWildcard("1.0") {
		t.Error("Expected 1.0 not to be a wildcard")
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"1.0", "2.0", "1.0", "3.0", "2.0"})
	want := []string{"1.0", "2.0", "3.0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
