package services

import (
	"testing"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{300, 300},
		{299.999, 300},
		{33.333333, 33.33},
		{0.005, 0.01},
		{1000 * 0.3, 300},
	}

	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestPartialPaymentMessage(t *testing.T) {
	got := PartialPaymentMessage("₹", 300, 1000)
	want := "You have paid ₹300.00 out of ₹1000.00. Remaining ₹700.00 is to be paid at COD."
	if got != want {
		t.Errorf("PartialPaymentMessage = %q; want %q", got, want)
	}
}
