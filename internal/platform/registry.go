// Package platform holds the static configuration for each supported
// grocery platform: its base URL and the DOM selectors used to drive login,
// OTP, add-to-cart, and cart extraction. The table is immutable and shared
// read-only by every session; adding a platform is purely additive.
package platform

import (
	"fmt"
	"sort"
)

// Selectors names every interaction point the orchestrator touches.
// Each entry is a comma-separated CSS selector list, most specific first,
// because the platforms rename classes and test ids frequently.
type Selectors struct {
	LoginButton     string
	PhoneInput      string
	SubmitButton    string
	OTPInput        string
	OTPSubmitButton string
	AddToCartButton string
	CartButton      string
	Price           string
	Variant         string
}

// Config is the immutable configuration for one platform.
type Config struct {
	Name      string
	BaseURL   string
	Selectors Selectors
}

// ErrUnsupportedPlatform is returned by Resolve for unknown platform names.
type ErrUnsupportedPlatform struct {
	Name string
}

func (e *ErrUnsupportedPlatform) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Name)
}

var configs = map[string]*Config{
	"blinkit": {
		Name:    "blinkit",
		BaseURL: "https://blinkit.com",
		Selectors: Selectors{
			LoginButton:     `[data-testid="login-button"], .login-btn, button[aria-label*="login"]`,
			PhoneInput:      `input[type="tel"], input[name="phone"], input[placeholder*="phone"]`,
			SubmitButton:    `button[type="submit"], .submit-btn`,
			OTPInput:        `input[type="text"], input[name="otp"], input[placeholder*="OTP"]`,
			OTPSubmitButton: `button[type="submit"], .verify-btn`,
			AddToCartButton: `button[aria-label*="add to cart"], .add-to-cart`,
			CartButton:      `[data-testid="cart"], .cart-icon, a[href*="cart"]`,
			Price:           `.price, [data-testid="price"], .product-price`,
			Variant:         `.variant-option, [data-testid="variant"], .weight-option`,
		},
	},
	"zepto": {
		Name:    "zepto",
		BaseURL: "https://zepto.in",
		Selectors: Selectors{
			LoginButton:     `[data-testid="login"], .login-button`,
			PhoneInput:      `input[type="tel"], input[name="mobile"], input[placeholder*="mobile"]`,
			SubmitButton:    `button[type="submit"], .send-otp`,
			OTPInput:        `input[type="text"], input[name="otp"], input[placeholder*="OTP"]`,
			OTPSubmitButton: `button[type="submit"], .verify-otp`,
			AddToCartButton: `button[aria-label*="add"], .add-btn`,
			CartButton:      `[data-testid="cart"], .cart, a[href*="cart"]`,
			Price:           `.price, [data-testid="price"], .product-price`,
			Variant:         `.variant, [data-testid="variant"], .size-option`,
		},
	},
	"instamart": {
		Name:    "instamart",
		BaseURL: "https://www.instamart.in",
		Selectors: Selectors{
			LoginButton:     `[data-testid="login"], .login-btn`,
			PhoneInput:      `input[type="tel"], input[name="phone"], input[placeholder*="phone"]`,
			SubmitButton:    `button[type="submit"], .send-otp`,
			OTPInput:        `input[type="text"], input[name="otp"], input[placeholder*="OTP"]`,
			OTPSubmitButton: `button[type="submit"], .verify-otp`,
			AddToCartButton: `button[aria-label*="add"], .add-to-cart`,
			CartButton:      `[data-testid="cart"], .cart-icon, a[href*="cart"]`,
			Price:           `.price, [data-testid="price"], .product-price`,
			Variant:         `.variant, [data-testid="variant"], .weight-option`,
		},
	},
}

// Resolve looks up the configuration for a platform name.
func Resolve(name string) (*Config, error) {
	cfg, ok := configs[name]
	if !ok {
		return nil, &ErrUnsupportedPlatform{Name: name}
	}
	return cfg, nil
}

// Supported reports whether the platform name is known.
func Supported(name string) bool {
	_, ok := configs[name]
	return ok
}

// Names returns the supported platform names in stable order.
func Names() []string {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
