package email

import (
	"fmt"
	"html"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vnd = message.NewPrinter(language.Vietnamese)

// OrderItem is one line of the confirmation table.
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice int64
}

// Confirmation carries everything the order confirmation email shows.
type Confirmation struct {
	OrderID      string
	CustomerName string
	Items        []OrderItem
	Subtotal     int64
	ShippingFee  int64
	Total        int64
}

// FormatVND renders whole dong with Vietnamese digit grouping, e.g.
// "1.999.000 ₫".
func FormatVND(amount int64) string {
	return vnd.Sprintf("%d", amount) + " ₫"
}

func shortID(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(c Confirmation) string {
	var itemsHTML strings.Builder
	for _, item := range c.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		fmt.Fprintf(&itemsHTML,
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			html.EscapeString(name),
			item.Quantity,
			FormatVND(item.UnitPrice),
			FormatVND(item.UnitPrice*int64(item.Quantity)),
		)
	}

	greeting := "Xin chào,"
	if c.CustomerName != "" {
		greeting = fmt.Sprintf("Xin chào %s,", html.EscapeString(c.CustomerName))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #111; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #000; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Cảm ơn bạn đã đặt hàng</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">%s</p>
		<p>Chúng tôi đã nhận được đơn hàng của bạn và sẽ sớm xử lý.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Mã đơn hàng</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Sản phẩm</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Số lượng</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Đơn giá</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Thành tiền</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<table style="width: 100%%; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<tr><td>Tạm tính</td><td style="text-align: right;">%s</td></tr>
			<tr><td>Phí vận chuyển</td><td style="text-align: right;">%s</td></tr>
			<tr><td style="font-weight: bold;">Tổng cộng</td><td style="text-align: right; font-size: 20px; font-weight: bold;">%s</td></tr>
		</table>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			Email này được gửi tự động, vui lòng không trả lời.
		</p>
	</div>
</body>
</html>`,
		greeting,
		html.EscapeString(c.OrderID),
		itemsHTML.String(),
		FormatVND(c.Subtotal),
		FormatVND(c.ShippingFee),
		FormatVND(c.Total),
	)
}
