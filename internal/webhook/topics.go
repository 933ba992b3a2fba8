package webhook

import "strings"

// Topic identifies a category of storefront event, formatted as
// "<resource>.<event>", e.g. "order.created".
type Topic string

// Resource returns the part of the topic before the dot.
func (t Topic) Resource() string {
	resource, _, _ := strings.Cut(string(t), ".")
	return resource
}

// Event returns the part of the topic after the dot.
func (t Topic) Event() string {
	_, event, _ := strings.Cut(string(t), ".")
	return event
}

// TopicInfo describes a supported topic for display.
type TopicInfo struct {
	ID          Topic  `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var topicCatalog = []TopicInfo{
	{ID: "order.created", Label: "Order Created", Description: "Fired when a new order is placed"},
	{ID: "order.updated", Label: "Order Updated", Description: "Fired when an order is updated"},
	{ID: "order.deleted", Label: "Order Deleted", Description: "Fired when an order is deleted"},
	{ID: "product.created", Label: "Product Created", Description: "Fired when a new product is created"},
	{ID: "product.updated", Label: "Product Updated", Description: "Fired when a product is updated"},
	{ID: "product.deleted", Label: "Product Deleted", Description: "Fired when a product is deleted"},
	{ID: "customer.created", Label: "Customer Created", Description: "Fired when a new customer registers"},
	{ID: "customer.updated", Label: "Customer Updated", Description: "Fired when customer details are updated"},
	{ID: "customer.deleted", Label: "Customer Deleted", Description: "Fired when a customer is deleted"},
	{ID: "coupon.created", Label: "Coupon Created", Description: "Fired when a new coupon is created"},
	{ID: "coupon.updated", Label: "Coupon Updated", Description: "Fired when a coupon is updated"},
	{ID: "coupon.deleted", Label: "Coupon Deleted", Description: "Fired when a coupon is deleted"},
}

// Topics returns the supported topics in catalog order. The returned slice
// is a copy.
func Topics() []TopicInfo {
	out := make([]TopicInfo, len(topicCatalog))
	copy(out, topicCatalog)
	return out
}

// IsValidTopic reports whether t belongs to the catalog.
func IsValidTopic(t Topic) bool {
	for _, info := range topicCatalog {
		if info.ID == t {
			return true
		}
	}
	return false
}
