package automation

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"grocery-autocart/pkg/models"
)

// Fixtures for mock mode, used when demoing without live platform access.
var mockCartItems = []models.CartItem{
	{ProductID: "mock-product-1", Name: "Organic Bananas", Price: 45, Quantity: 1, Weight: "1kg",
		Image: "https://via.placeholder.com/100x100?text=Banana"},
	{ProductID: "mock-product-2", Name: "Fresh Milk", Price: 65, Quantity: 1, Weight: "1L",
		Image: "https://via.placeholder.com/100x100?text=Milk"},
	{ProductID: "mock-product-3", Name: "Whole Wheat Bread", Price: 35, Quantity: 1, Weight: "400g",
		Image: "https://via.placeholder.com/100x100?text=Bread"},
}

const (
	mockDeliveryFee = 20.0
	mockTaxRate     = 0.06
)

// mockCart fabricates a deterministic-shaped cart with lightly randomized
// prices, mirroring what a real extraction returns. Unlike the scraped path,
// totals here are computed, so the price identity holds exactly.
func (o *Orchestrator) mockCart(ctx context.Context, sess *models.SessionData) (*models.CartDetails, error) {
	if err := o.settle(ctx, o.cfg.SettleDelay); err != nil {
		return nil, err
	}

	items := make([]models.CartItem, len(mockCartItems))
	copy(items, mockCartItems)

	var subtotal float64
	for i := range items {
		items[i].Price += float64(rand.Intn(20))
		subtotal += items[i].Price * float64(items[i].Quantity)
	}
	taxes := subtotal * mockTaxRate
	total := subtotal + mockDeliveryFee + taxes

	sess.State = models.StateCartReady
	sess.UpdatedAt = time.Now()
	if err := o.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	o.logger.Info("mock cart returned",
		zap.String("session_id", sess.ID), zap.Float64("total", total))

	return &models.CartDetails{
		Items:       items,
		Subtotal:    subtotal,
		DeliveryFee: mockDeliveryFee,
		Taxes:       taxes,
		Total:       total,
		Currency:    "INR",
	}, nil
}
