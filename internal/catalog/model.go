package catalog

// Unit is a measurement unit, unique by name.
type Unit struct {
	ID   uint   `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;size:200;not null;uniqueIndex"`
}

// TableName provides the explicit table binding for GORM.
func (Unit) TableName() string {
	return "units"
}

// Ingredient is unique per (name, unit). Deleting the unit keeps the ingredient with a NULL unit.
type Ingredient struct {
	ID     uint   `gorm:"column:id;primaryKey"`
	Name   string `gorm:"column:name;size:200;not null;uniqueIndex:idx_ingredients_name_unit,priority:1"`
	UnitID *uint  `gorm:"column:unit_id;uniqueIndex:idx_ingredients_name_unit,priority:2"`
	Unit   *Unit  `gorm:"foreignKey:UnitID;constraint:OnDelete:SET NULL"`
}

// TableName provides the explicit table binding for GORM.
func (Ingredient) TableName() string {
	return "ingredients"
}

// UnitName returns the resolved unit name, or "" when the unit was removed.
func (i Ingredient) UnitName() string {
	if i.Unit == nil {
		return ""
	}
	return i.Unit.Name
}

// Tag labels recipes; name and slug are both unique.
type Tag struct {
	ID    uint   `gorm:"column:id;primaryKey"`
	Name  string `gorm:"column:name;size:200;not null;uniqueIndex"`
	Slug  string `gorm:"column:slug;size:200;not null;uniqueIndex"`
	Color string `gorm:"column:color;size:7;not null;default:'#FF0000'"`
}

// TableName provides the explicit table binding for GORM.
func (Tag) TableName() string {
	return "tags"
}

// IngredientInput describes one entry of a bulk ingredient import.
type IngredientInput struct {
	Name            string `json:"name" validate:"required,max=200"`
	MeasurementUnit string `json:"measurement_unit" validate:"required,max=200"`
}

// TagInput describes a tag to create.
type TagInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Slug  string `json:"slug" validate:"required,max=200,slug"`
	Color string `json:"color" validate:"omitempty,hexcolor6"`
}
