package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErnestIssa/peak-mode/internal/checkout"
)

// OrderMailer sends the shopper an order confirmation once payment is verified.
type OrderMailer struct {
	mailer Mailer
}

func NewOrderMailer(m Mailer) *OrderMailer {
	return &OrderMailer{mailer: m}
}

func (o *OrderMailer) OrderCompleted(ctx context.Context, order checkout.CompletedOrder) error {
	if order.Customer.Email == "" {
		return nil
	}
	subject := "Your Peak Mode order is confirmed"
	if err := o.mailer.Send(ctx, order.Customer.Email, subject, confirmationBody(order)); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}
	return nil
}

func confirmationBody(order checkout.CompletedOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", order.Customer.Name)
	b.WriteString("Thank you for your order. Your payment has been received.\n\n")
	for _, it := range order.Items {
		line := it.Name
		if variant := strings.TrimSpace(strings.Join([]string{it.Size, it.Color}, " ")); variant != "" {
			line += " (" + variant + ")"
		}
		fmt.Fprintf(&b, "%d x %s  %s %s\n", it.Quantity, line, it.Subtotal().StringFixed(2), order.Currency)
	}
	fmt.Fprintf(&b, "\nTotal: %s %s\n", order.Total.StringFixed(2), order.Currency)
	fmt.Fprintf(&b, "Order reference: %s\n\n", order.PaymentIntentID)
	b.WriteString("Peak Mode\n")
	return b.String()
}
