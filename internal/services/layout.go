package services

import "strings"

// CheckoutLayout classifies how a storefront renders its checkout page.
// The layout decides the client-side flow: block checkout redirects with
// query parameters, classic checkout uses the nonce-guarded AJAX flow.
type CheckoutLayout struct {
	Theme  string `json:"theme"`  // "block" or "classic"
	Layout string `json:"layout"` // "block", "classic", "block+shortcode" or "unknown"
}

const checkoutShortcode = "[woocommerce_checkout]"

// DetectCheckoutLayout inspects the checkout page content. Pure function,
// cacheable per request.
func DetectCheckoutLayout(isBlockTheme bool, pageContent string) CheckoutLayout {
	theme := "classic"
	if isBlockTheme {
		theme = "block"
	}

	hasBlocks := strings.Contains(pageContent, "<!-- wp:")
	hasShortcode := strings.Contains(pageContent, checkoutShortcode)
	hasShortcodeBlock := strings.Contains(pageContent, "<!-- wp:woocommerce/classic-shortcode") &&
		strings.Contains(pageContent, `"shortcode":"checkout"`)

	layout := "unknown"
	switch {
	case hasBlocks && (hasShortcode || hasShortcodeBlock):
		layout = "block+shortcode"
	case hasBlocks:
		layout = "block"
	case hasShortcode || hasShortcodeBlock:
		layout = "classic"
	}

	return CheckoutLayout{Theme: theme, Layout: layout}
}
