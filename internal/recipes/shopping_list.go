package recipes

import (
	"fmt"
	"strings"
)

// UnspecifiedUnit is printed for ingredients whose unit has been deleted.
const UnspecifiedUnit = "unspecified"

// ShoppingLine is one ingredient line of one recipe in a user's cart.
type ShoppingLine struct {
	IngredientName string
	UnitName       string
	Amount         int
}

// ShoppingItem is an aggregated shopping list entry.
type ShoppingItem struct {
	IngredientName string
	UnitName       string
	TotalAmount    int
}

type shoppingKey struct {
	name string
	unit string
}

// AggregateShoppingList groups lines by (ingredient name, unit name) and sums the amounts.
// Items keep the order in which each pair was first seen.
func AggregateShoppingList(lines []ShoppingLine) []ShoppingItem {
	items := make([]ShoppingItem, 0, len(lines))
	positions := make(map[shoppingKey]int, len(lines))
	for _, line := range lines {
		key := shoppingKey{name: line.IngredientName, unit: line.UnitName}
		if index, ok := positions[key]; ok {
			items[index].TotalAmount += line.Amount
			continue
		}
		positions[key] = len(items)
		items = append(items, ShoppingItem{
			IngredientName: line.IngredientName,
			UnitName:       line.UnitName,
			TotalAmount:    line.Amount,
		})
	}
	return items
}

// RenderShoppingList prints one "{name} ({unit}) — {amount}" line per item.
func RenderShoppingList(items []ShoppingItem) string {
	var builder strings.Builder
	for _, item := range items {
		unit := item.UnitName
		if unit == "" {
			unit = UnspecifiedUnit
		}
		fmt.Fprintf(&builder, "%s (%s) — %d\n", item.IngredientName, unit, item.TotalAmount)
	}
	return builder.String()
}
