package services

import (
	"fmt"
	"math"
)

// Round2 rounds a monetary amount to two decimal places.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Price formats an amount for shopper-facing text, e.g. "₹300.00".
func Price(symbol string, amount float64) string {
	return fmt.Sprintf("%s%.2f", symbol, amount)
}

// PartialPaymentMessage is the shopper-facing summary of a split payment.
func PartialPaymentMessage(symbol string, paid, total float64) string {
	remaining := total - paid
	return fmt.Sprintf("You have paid %s out of %s. Remaining %s is to be paid at COD.",
		Price(symbol, paid), Price(symbol, total), Price(symbol, remaining))
}
