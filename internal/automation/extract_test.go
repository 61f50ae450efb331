package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartFixture = `
<html><body>
  <div class="cart">
    <div class="cart-item" data-product-id="bananas-1kg">
      <span class="product-name">Organic Bananas</span>
      <span class="product-price">₹45.00</span>
      <span class="quantity">2</span>
    </div>
    <div class="cart-item" data-product-id="milk-1l">
      <span class="product-name"> Fresh Milk </span>
      <span class="product-price">₹65</span>
    </div>
  </div>
  <div class="subtotal">₹155.00</div>
  <div class="delivery-fee">₹20</div>
  <div class="total">₹175.00</div>
</body></html>`

func TestParseCartFixture(t *testing.T) {
	cart := ParseCart(cartFixture)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, "INR", cart.Currency)

	first := cart.Items[0]
	assert.Equal(t, "bananas-1kg", first.ProductID)
	assert.Equal(t, "Organic Bananas", first.Name)
	assert.Equal(t, 45.0, first.Price)
	assert.Equal(t, 2, first.Quantity)

	second := cart.Items[1]
	assert.Equal(t, "Fresh Milk", second.Name, "names are trimmed")
	assert.Equal(t, 65.0, second.Price)
	assert.Equal(t, 1, second.Quantity, "missing quantity defaults to 1")

	assert.Equal(t, 155.0, cart.Subtotal)
	assert.Equal(t, 20.0, cart.DeliveryFee)
	assert.Equal(t, 0.0, cart.Taxes, "no platform shows taxes separately")
	assert.Equal(t, 175.0, cart.Total)
	assert.Empty(t, cart.Warnings)
}

func TestParseCartUsesTestIDSelectors(t *testing.T) {
	html := `
<div data-testid="cart-item">
  <span data-testid="product-name">Bread</span>
  <span data-testid="product-price">₹35</span>
  <span data-testid="quantity">1</span>
</div>
<div data-testid="subtotal">₹35</div>
<div data-testid="delivery-fee">₹0</div>
<div data-testid="total">₹35</div>`

	cart := ParseCart(html)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Bread", cart.Items[0].Name)
	assert.Equal(t, 35.0, cart.Total)
}

func TestParseCartUnreadableFieldsWarnAndZero(t *testing.T) {
	html := `
<div class="cart-item">
  <span class="product-name">Mystery Item</span>
  <span class="product-price">free!</span>
  <span class="quantity">a few</span>
</div>
<div class="total">₹99</div>`

	cart := ParseCart(html)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 0.0, cart.Items[0].Price)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	assert.Equal(t, 0.0, cart.Subtotal, "missing subtotal defaults to 0")
	assert.Equal(t, 99.0, cart.Total)

	require.NotEmpty(t, cart.Warnings)
	joined := ""
	for _, w := range cart.Warnings {
		joined += w + "\n"
	}
	assert.Contains(t, joined, "item 1 price")
	assert.Contains(t, joined, "quantity")
	assert.Contains(t, joined, "subtotal missing")
}

func TestParseCartFlagsInconsistentTotal(t *testing.T) {
	html := `
<div class="subtotal">₹100</div>
<div class="delivery-fee">₹20</div>
<div class="total">₹150</div>`

	cart := ParseCart(html)
	assert.Equal(t, 150.0, cart.Total, "the scraped total is reported as-is")

	require.NotEmpty(t, cart.Warnings)
	assert.Contains(t, cart.Warnings[len(cart.Warnings)-1], "disagrees")
}

func TestParseCartEmptyPage(t *testing.T) {
	cart := ParseCart("<html><body></body></html>")
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.0, cart.Total)
	// Every summary field is missing, each with its own warning.
	assert.Len(t, cart.Warnings, 3)
}
