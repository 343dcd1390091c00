package recipes

import (
	"reflect"
	"testing"
)

func TestAggregateShoppingList(t *testing.T) {
	testCases := []struct {
		name  string
		lines []ShoppingLine
		want  []ShoppingItem
	}{
		{
			name:  "empty",
			lines: nil,
			want:  []ShoppingItem{},
		},
		{
			name: "sums-in-first-seen-order",
			lines: []ShoppingLine{
				{IngredientName: "flour", UnitName: "g", Amount: 200},
				{IngredientName: "egg", UnitName: "pcs", Amount: 2},
				{IngredientName: "flour", UnitName: "g", Amount: 300},
				{IngredientName: "milk", UnitName: "ml", Amount: 100},
				{IngredientName: "egg", UnitName: "pcs", Amount: 1},
			},
			want: []ShoppingItem{
				{IngredientName: "flour", UnitName: "g", TotalAmount: 500},
				{IngredientName: "egg", UnitName: "pcs", TotalAmount: 3},
				{IngredientName: "milk", UnitName: "ml", TotalAmount: 100},
			},
		},
		{
			name: "same-name-different-unit",
			lines: []ShoppingLine{
				{IngredientName: "sugar", UnitName: "g", Amount: 10},
				{IngredientName: "sugar", UnitName: "tbsp", Amount: 2},
				{IngredientName: "sugar", UnitName: "", Amount: 1},
				{IngredientName: "sugar", UnitName: "g", Amount: 5},
			},
			want: []ShoppingItem{
				{IngredientName: "sugar", UnitName: "g", TotalAmount: 15},
				{IngredientName: "sugar", UnitName: "tbsp", TotalAmount: 2},
				{IngredientName: "sugar", UnitName: "", TotalAmount: 1},
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := AggregateShoppingList(testCase.lines)
			if !reflect.DeepEqual(got, testCase.want) {
				t.Fatalf("unexpected items\n got: %#v\nwant: %#v", got, testCase.want)
			}
			again := AggregateShoppingList(testCase.lines)
			if !reflect.DeepEqual(got, again) {
				t.Fatalf("aggregation is not deterministic")
			}
		})
	}
}

func TestRenderShoppingList(t *testing.T) {
	items := []ShoppingItem{
		{IngredientName: "flour", UnitName: "g", TotalAmount: 500},
		{IngredientName: "salt", UnitName: "", TotalAmount: 1},
	}
	want := "flour (g) — 500\nsalt (unspecified) — 1\n"
	if got := RenderShoppingList(items); got != want {
		t.Fatalf("unexpected rendering %q", got)
	}
	if got := RenderShoppingList(nil); got != "" {
		t.Fatalf("expected empty report, got %q", got)
	}
}
