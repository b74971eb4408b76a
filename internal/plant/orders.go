package plant

import (
	"bytes"
	"fmt"
	"os"

	"mesplane/internal/batch"

	"gopkg.in/yaml.v3"
)

type ordersDoc struct {
	Orders []batch.Order `yaml:"orders"`
}

// LoadOrders reads an order file. The file holds either a top-level
// "orders" list or a single order.
func LoadOrders(path string) ([]batch.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders file: %w", err)
	}
	orders, err := ParseOrders(data)
	if err != nil {
		return nil, fmt.Errorf("orders file %s: %w", path, err)
	}
	return orders, nil
}

// ParseOrders decodes and validates order documents.
func ParseOrders(data []byte) ([]batch.Order, error) {
	var list ordersDoc
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("invalid orders yaml: %w", err)
	}

	orders := list.Orders
	if len(orders) == 0 {
		var single batch.Order
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&single); err != nil {
			return nil, fmt.Errorf("invalid order yaml: %w", err)
		}
		orders = []batch.Order{single}
	}

	if err := ValidateOrders(orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Limits on how much work one batch may expand into.
const (
	MaxQuantity  = 1000
	MaxInstances = 10000
)

// ValidateOrders checks every order and bounds the total number of product
// instances they expand into.
func ValidateOrders(orders []batch.Order) error {
	total := 0
	for i, o := range orders {
		if err := ValidateOrder(o); err != nil {
			return fmt.Errorf("order %d: %w", i+1, err)
		}
		for _, l := range o.Lines {
			total += l.Quantity
		}
		if total > MaxInstances {
			return fmt.Errorf("orders expand to more than %d product instances", MaxInstances)
		}
	}
	return nil
}

// ValidateOrder checks the fields scheduling depends on.
func ValidateOrder(o batch.Order) error {
	if o.ID == "" {
		return fmt.Errorf("order_id is required")
	}
	if len(o.Lines) == 0 {
		return fmt.Errorf("order %s has no lines", o.ID)
	}
	for i, l := range o.Lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("order %s line %d: quantity must be positive", o.ID, i+1)
		}
		if l.Quantity > MaxQuantity {
			return fmt.Errorf("order %s line %d: quantity must not exceed %d", o.ID, i+1, MaxQuantity)
		}
		if l.DueDate < 0 {
			return fmt.Errorf("order %s line %d: due_date must be non-negative", o.ID, i+1)
		}
		if l.Penalty < 0 {
			return fmt.Errorf("order %s line %d: penalty must be non-negative", o.ID, i+1)
		}
	}
	return nil
}
