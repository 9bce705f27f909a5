package service

import (
	"math/big"
	"testing"
	"time"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    string
		wantErr bool
	}{
		{name: "whole", amount: "25000", want: "25000000000000000000000"},
		{name: "fraction", amount: "1736.2", want: "1736200000000000000000"},
		{name: "one wei", amount: "0.000000000000000001", want: "1"},
		{name: "zero", amount: "0", want: "0"},
		{name: "too precise", amount: "0.0000000000000000001", wantErr: true},
		{name: "garbage", amount: "ten", wantErr: true},
		{name: "empty", amount: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEther(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseEther(%q) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("ParseEther(%q) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  *big.Int
		want string
	}{
		{MustParseEther("1736.2"), "1736.2"},
		{big.NewInt(1), "0.000000000000000001"},
		{big.NewInt(0), "0"},
		{nil, "0"},
		{MustParseEther("100"), "100"},
	}

	for _, tt := range tests {
		if got := FormatEther(tt.wei); got != tt.want {
			t.Errorf("FormatEther(%v) = %s, want %s", tt.wei, got, tt.want)
		}
	}
}

func TestDelta(t *testing.T) {
	if got := Delta(big.NewInt(100), big.NewInt(250)); got.Int64() != 150 {
		t.Errorf("Delta() = %s, want 150", got)
	}
	if got := Delta(big.NewInt(250), big.NewInt(100)); got.Sign() >= 0 {
		t.Errorf("Delta() = %s, want negative", got)
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(30 * Day); got != 2_592_000 {
		t.Errorf("Seconds(30 days) = %d", got)
	}
	if got := Seconds(1500 * time.Millisecond); got != 1 {
		t.Errorf("Seconds(1.5s) = %d", got)
	}
	if got := Seconds(-time.Second); got != 0 {
		t.Errorf("Seconds(-1s) = %d", got)
	}
}
