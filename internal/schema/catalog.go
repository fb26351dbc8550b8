// Package schema holds the table/column allow-list the agent is permitted
// to query, either declared statically or introspected from the database.
package schema

import "strings"

type Table struct {
	Name    string
	Columns []string
}

// Catalog is the allow-list consulted by the safety gate. Lookups are
// case-insensitive.
type Catalog struct {
	tables []Table
	index  map[string]map[string]struct{}
}

func NewCatalog(tables ...Table) *Catalog {
	catalog := &Catalog{
		tables: tables,
		index:  make(map[string]map[string]struct{}, len(tables)),
	}
	for _, table := range tables {
		columns := make(map[string]struct{}, len(table.Columns))
		for _, column := range table.Columns {
			columns[strings.ToLower(column)] = struct{}{}
		}
		catalog.index[strings.ToLower(table.Name)] = columns
	}
	return catalog
}

func (c *Catalog) Tables() []Table {
	return c.tables
}

func (c *Catalog) HasTable(name string) bool {
	_, ok := c.index[strings.ToLower(name)]
	return ok
}

func (c *Catalog) HasColumn(table, column string) bool {
	columns, ok := c.index[strings.ToLower(table)]
	if !ok {
		return false
	}
	_, ok = columns[strings.ToLower(column)]
	return ok
}

// Default returns the restaurant menu schema the agent ships with. It is
// used when live introspection is unavailable and in tests.
func Default() *Catalog {
	return NewCatalog(
		Table{
			Name: "dishes",
			Columns: []string{
				"dish_id", "name", "category", "description", "base_price",
				"is_vegetarian", "is_vegan", "spicy_level", "cuisine",
			},
		},
		Table{
			Name:    "dish_variants",
			Columns: []string{"variant_id", "dish_id", "variant_name", "price"},
		},
		Table{
			Name:    "dish_ingredients",
			Columns: []string{"ingredient_id", "dish_id", "ingredient_name", "is_allergen"},
		},
		Table{
			Name:    "dish_modifiers",
			Columns: []string{"modifier_id", "dish_id", "modifier_name", "modifier_type", "additional_price"},
		},
	)
}
