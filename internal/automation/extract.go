package automation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"grocery-autocart/pkg/models"
)

// Cart-view selectors are stable across the supported platforms, unlike the
// interaction selectors in the platform registry.
const (
	cartItemSel     = `.cart-item, [data-testid="cart-item"]`
	itemNameSel     = `.product-name, [data-testid="product-name"]`
	itemPriceSel    = `.product-price, [data-testid="product-price"]`
	itemQuantitySel = `.quantity, [data-testid="quantity"]`
	subtotalSel     = `.subtotal, [data-testid="subtotal"]`
	deliveryFeeSel  = `.delivery-fee, [data-testid="delivery-fee"]`
	totalSel        = `.total, [data-testid="total"]`
)

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// ParseCart extracts the normalized price breakdown from a cart page
// snapshot. Extraction is best-effort: a field that cannot be parsed to a
// number becomes zero and adds a warning, because partial data beats total
// failure. Taxes are not shown separately on any supported platform and stay
// zero; the scraped total is reported as-is, with a warning when it
// disagrees with subtotal + delivery fee.
func ParseCart(html string) *models.CartDetails {
	cart := &models.CartDetails{
		Items:    []models.CartItem{},
		Currency: "INR",
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		cart.Warnings = append(cart.Warnings, "cart markup could not be parsed: "+err.Error())
		return cart
	}

	doc.Find(cartItemSel).Each(func(i int, sel *goquery.Selection) {
		item := models.CartItem{
			Name:     strings.TrimSpace(sel.Find(itemNameSel).First().Text()),
			Quantity: 1,
		}
		item.Price = parseAmount(sel.Find(itemPriceSel).First().Text(),
			fmt.Sprintf("item %d price", i+1), &cart.Warnings)

		if qtyText := strings.TrimSpace(sel.Find(itemQuantitySel).First().Text()); qtyText != "" {
			if qty, err := strconv.Atoi(nonNumeric.ReplaceAllString(qtyText, "")); err == nil && qty > 0 {
				item.Quantity = qty
			} else {
				cart.Warnings = append(cart.Warnings,
					fmt.Sprintf("item %d quantity %q unreadable, defaulting to 1", i+1, qtyText))
			}
		}

		if id, ok := sel.Attr("data-product-id"); ok {
			item.ProductID = id
		}
		cart.Items = append(cart.Items, item)
	})

	cart.Subtotal = parseAmount(doc.Find(subtotalSel).First().Text(), "subtotal", &cart.Warnings)
	cart.DeliveryFee = parseAmount(doc.Find(deliveryFeeSel).First().Text(), "delivery fee", &cart.Warnings)
	cart.Total = parseAmount(doc.Find(totalSel).First().Text(), "total", &cart.Warnings)

	if expected := cart.Subtotal + cart.DeliveryFee + cart.Taxes; cart.Total != 0 &&
		math.Abs(cart.Total-expected) > 0.01 {
		cart.Warnings = append(cart.Warnings,
			fmt.Sprintf("scraped total %.2f disagrees with subtotal+fees %.2f", cart.Total, expected))
	}

	return cart
}

// parseAmount strips currency symbols and separators, then parses the rest.
// Unreadable text yields zero plus a warning naming the field.
func parseAmount(text, field string, warnings *[]string) float64 {
	cleaned := nonNumeric.ReplaceAllString(text, "")
	if cleaned == "" {
		*warnings = append(*warnings, field+" missing from cart page, defaulting to 0")
		return 0
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s %q unreadable, defaulting to 0", field, strings.TrimSpace(text)))
		return 0
	}
	return amount
}
