package libs

import (
	"context"
	"fmt"
	"html"
	"storefront/models"
	"strings"

	"gopkg.in/gomail.v2"
)

// OrderMailer e-mails the shop owner when a checkout has been submitted.
type OrderMailer struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewOrderMailer(host string, port int, user, pass, from, to string) *OrderMailer {
	if from == "" {
		from = user
	}
	return &OrderMailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
		to:     to,
	}
}

func (m *OrderMailer) NotifyOrderPlaced(ctx context.Context, n models.OrderNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", orderSubject(n))
	msg.SetBody("text/html", orderBody(n))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send order email: %w", err)
	}
	return nil
}

func orderSubject(n models.OrderNotification) string {
	if n.OrderID > 0 {
		return fmt.Sprintf("New order #%d", n.OrderID)
	}
	return "New order"
}

func orderBody(n models.OrderNotification) string {
	addr := n.Address
	lines := []string{addr.StreetAddress, addr.LocalArea, addr.City, addr.Province, addr.PostalCode, addr.Country}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			parts = append(parts, html.EscapeString(l))
		}
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
    <h2>New order received</h2>
    <p><strong>Items:</strong> %s</p>
    <p><strong>Total:</strong> %.2f</p>
    <p><strong>Deliver to:</strong> %s</p>
    <p style="color: #666; font-size: 12px;">Location: %.6f, %.6f</p>
</body>
</html>
`, html.EscapeString(n.ItemsSummary), n.Total, strings.Join(parts, ", "), addr.Lat, addr.Lng)
}
