package models

// CartItem is one line item scraped from a platform's cart view.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Weight    string  `json:"weight"`
	Image     string  `json:"image,omitempty"`
}

// CartDetails is the normalized price breakdown extracted from a cart page.
// Warnings records every field that could not be parsed from the page text
// and defaulted to zero, so callers can tell "truly zero" from "unreadable".
type CartDetails struct {
	Items       []CartItem `json:"items"`
	Subtotal    float64    `json:"subtotal"`
	DeliveryFee float64    `json:"deliveryFee"`
	Taxes       float64    `json:"taxes"`
	Total       float64    `json:"total"`
	Currency    string     `json:"currency"`
	Warnings    []string   `json:"warnings,omitempty"`
}
