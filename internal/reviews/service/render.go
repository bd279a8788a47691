package service

import "strings"

// Merge tags recognised in subject and body templates.
const (
	TagCustomerName = "{{customer_name}}"
	TagOrderNumber  = "{{order_number}}"
	TagProductName  = "{{product_name}}"
)

// Values fills the merge tags for one order.
type Values struct {
	CustomerName string
	OrderNumber  string
	ProductName  string
}

// Render replaces every recognised merge tag in tmpl. Unknown tags are left
// as written. Substitution is a single pass, so a value that itself contains
// a tag is not expanded again.
func Render(tmpl string, v Values) string {
	return strings.NewReplacer(
		TagCustomerName, v.CustomerName,
		TagOrderNumber, v.OrderNumber,
		TagProductName, v.ProductName,
	).Replace(tmpl)
}
