package services

import (
	"fmt"
	"io"
	"testing"

	"lianjia-rentals/models"
	"lianjia-rentals/utils"
)

func newTestLogger() *utils.Logger { return utils.NewWriterLogger(io.Discard, "info") }

func fptr(f *float64) string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%g", *f)
}

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		raw  *string
		want string
	}{
		{models.Str("5500元/月"), "5500"},
		{models.Str(" 1000 元/月 "), "1000"},
		{models.Str("2000-3000元/月"), "2500"},
		{models.Str("6615 - 7020元/月"), "6817.5"},
		{models.Str("12.5"), "12.5"},
		{nil, "<nil>"},
		{models.Str("abc"), "<nil>"},
		{models.Str("无效"), "<nil>"},
		{models.Str(""), "<nil>"},
		{models.Str("1-2-3元/月"), "<nil>"},
		{models.Str("1000-元/月"), "<nil>"},
		{models.Str("NaN"), "<nil>"},
		{models.Str("inf元/月"), "<nil>"},
	}

	for _, tt := range tests {
		if got := fptr(CleanPrice(tt.raw)); got != tt.want {
			t.Errorf("CleanPrice(%q) = %s; want %s", models.Deref(tt.raw), got, tt.want)
		}
	}
}

func TestCleanPriceRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 1, 42, 1234.5, 99999.25} {
		s := fmt.Sprintf("%v元/月", x)
		got := CleanPrice(&s)
		if got == nil || *got != x {
			t.Errorf("CleanPrice(%q) = %s; want %v", s, fptr(got), x)
		}
	}
}

func TestCleanPriceRangeMean(t *testing.T) {
	pairs := [][2]float64{{0, 1}, {1000, 1500}, {2.5, 7.75}, {6615, 7020}}
	for _, p := range pairs {
		s := fmt.Sprintf("%v-%v元/月", p[0], p[1])
		got := CleanPrice(&s)
		if want := (p[0] + p[1]) / 2; got == nil || *got != want {
			t.Errorf("CleanPrice(%q) = %s; want %v", s, fptr(got), want)
		}
	}
}

func TestCleanArea(t *testing.T) {
	tests := []struct {
		raw  *string
		want string
	}{
		{models.Str("75㎡"), "75"},
		{models.Str("71.5-72.5㎡"), "72"},
		{models.Str("25.00-32.00㎡"), "28.5"},
		{models.Str("未知"), "<nil>"},
		{nil, "<nil>"},
	}

	for _, tt := range tests {
		if got := fptr(CleanArea(tt.raw)); got != tt.want {
			t.Errorf("CleanArea(%q) = %s; want %s", models.Deref(tt.raw), got, tt.want)
		}
	}
}

func TestCleanFloor(t *testing.T) {
	tests := []struct {
		raw  *string
		want int
		ok   bool
	}{
		{models.Str("高楼层（6层）"), 6, true},
		{models.Str("低楼层6层"), 6, true},
		{models.Str("中楼层（18层）"), 18, true},
		{models.Str("共32层 地下1层"), 32, true},
		{models.Str("无"), 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got := CleanFloor(tt.raw)
		if !tt.ok {
			if got != nil {
				t.Errorf("CleanFloor(%q) = %d; want nil", models.Deref(tt.raw), *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("CleanFloor(%q) = %v; want %d", models.Deref(tt.raw), got, tt.want)
		}
	}
}

func TestDeriveRegion(t *testing.T) {
	tests := []struct {
		location *string
		want     string
	}{
		{models.Str("浦东-张江-某小区"), "浦东"},
		{models.Str("浦东-张江"), "浦东"},
		{models.Str("无分隔符"), "<nil>"},
		{nil, "<nil>"},
	}

	for _, tt := range tests {
		got := DeriveRegion(tt.location)
		gotStr := "<nil>"
		if got != nil {
			gotStr = *got
		}
		if gotStr != tt.want {
			t.Errorf("DeriveRegion(%q) = %s; want %s", models.Deref(tt.location), gotStr, tt.want)
		}
	}
}

func TestNormalizeDropsUnparseableRows(t *testing.T) {
	records := []models.ListingRecord{
		{Link: "a", Price: models.Str("1000元/月"), Area: models.Str("50㎡"), Location: models.Str("浦东-张江"), Floor: models.Str("低楼层6层")},
		{Link: "b", Price: models.Str("2000-3000元/月"), Area: models.Str("60㎡"), Location: models.Str("张江店")},
		{Link: "c", Price: models.Str("无效"), Area: models.Str("70㎡")},
	}

	got := NewCleaner(newTestLogger()).Normalize(records)
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if *got[0].PriceValue != 1000 || *got[1].PriceValue != 2500 {
		t.Errorf("prices: got %v and %v, want 1000 and 2500", *got[0].PriceValue, *got[1].PriceValue)
	}
	if got[0].Region == nil || *got[0].Region != "浦东" {
		t.Errorf("region of first row: got %v", got[0].Region)
	}
	if got[1].Region != nil || got[1].FloorValue != nil {
		t.Error("rows without region or floor should be kept with nil values")
	}
	if got[0].FloorValue == nil || *got[0].FloorValue != 6 {
		t.Errorf("floor of first row: got %v", got[0].FloorValue)
	}
}

func TestNormalizeDropsMissingArea(t *testing.T) {
	records := []models.ListingRecord{
		{Link: "a", Price: models.Str("1000元/月")},
		{Link: "b", Price: models.Str("1000元/月"), Area: models.Str("-")},
	}
	if got := NewCleaner(newTestLogger()).Normalize(records); len(got) != 0 {
		t.Errorf("got %d rows, want 0", len(got))
	}
}
