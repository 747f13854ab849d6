package notifications

import (
	"fmt"
	"strings"

	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	"github.com/graybeam/storefront-backend/pkg/mailer"
)

func orderConfirmationMessage(order *models.Order) mailer.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "Thanks for your order!\n\n")
	fmt.Fprintf(&body, "Order #%d\n\n", order.OrderNumber)
	for _, item := range order.Items {
		fmt.Fprintf(&body, "  %dx %s  %s\n", item.Qty, item.Name, formatCents(item.TotalCents))
	}
	fmt.Fprintf(&body, "\nSubtotal  %s\n", formatCents(order.SubtotalCents))
	fmt.Fprintf(&body, "Shipping  %s\n", formatCents(order.ShippingCents))
	fmt.Fprintf(&body, "Tax       %s\n", formatCents(order.TaxCents))
	fmt.Fprintf(&body, "Total     %s\n", formatCents(order.TotalCents))
	if order.ShippingAddress != nil {
		fmt.Fprintf(&body, "\nShipping to:\n%s\n", order.ShippingAddress.Oneline())
	}
	return mailer.Message{
		To:      order.Email,
		Subject: fmt.Sprintf("Order #%d confirmed", order.OrderNumber),
		Body:    body.String(),
	}
}

func orderStatusMessage(order *models.Order, status enums.OrderStatus) mailer.Message {
	subject := fmt.Sprintf("Order #%d update", order.OrderNumber)
	line := fmt.Sprintf("Your order #%d status is now %s.", order.OrderNumber, status)
	switch status {
	case enums.OrderStatusShipped:
		subject = fmt.Sprintf("Order #%d has shipped", order.OrderNumber)
		line = fmt.Sprintf("Good news! Your order #%d is on the way.", order.OrderNumber)
	case enums.OrderStatusDelivered:
		subject = fmt.Sprintf("Order #%d was delivered", order.OrderNumber)
		line = fmt.Sprintf("Your order #%d has been delivered. Enjoy!", order.OrderNumber)
	case enums.OrderStatusCanceled:
		subject = fmt.Sprintf("Order #%d was canceled", order.OrderNumber)
		line = fmt.Sprintf("Your order #%d has been canceled. Any captured payment will be refunded.", order.OrderNumber)
	}
	return mailer.Message{To: order.Email, Subject: subject, Body: line + "\n"}
}

func paymentFailedMessage(order *models.Order, reason string) mailer.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "We could not process the payment for order #%d.\n", order.OrderNumber)
	if strings.TrimSpace(reason) != "" {
		fmt.Fprintf(&body, "Reason: %s\n", reason)
	}
	fmt.Fprintf(&body, "\nYou can retry the payment from your order history.\n")
	return mailer.Message{
		To:      order.Email,
		Subject: fmt.Sprintf("Payment failed for order #%d", order.OrderNumber),
		Body:    body.String(),
	}
}

func formatCents(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
