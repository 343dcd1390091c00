package recipes

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/foodgram/internal/catalog"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	service     *Service
	tags        map[string]catalog.Tag
	ingredients map[string]catalog.Ingredient
}

func newFixture(t *testing.T, anonymousMembership string) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "recipes.db")), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.SetupJoinTable(&Recipe{}, "Tags", &RecipeTag{}); err != nil {
		t.Fatalf("failed to set up join table: %v", err)
	}
	if err := db.AutoMigrate(
		&users.User{},
		&catalog.Unit{}, &catalog.Ingredient{}, &catalog.Tag{},
		&Recipe{}, &RecipeTag{}, &RecipeIngredient{}, &Favorite{}, &CartEntry{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	service, err := NewService(ServiceConfig{Database: db, AnonymousMembership: anonymousMembership})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build catalog service: %v", err)
	}
	f := &fixture{
		db:          db,
		service:     service,
		tags:        map[string]catalog.Tag{},
		ingredients: map[string]catalog.Ingredient{},
	}
	for _, slug := range []string{"breakfast", "lunch", "dinner"} {
		tag, err := catalogService.CreateTag(context.Background(), catalog.TagInput{Name: slug, Slug: slug})
		if err != nil {
			t.Fatalf("failed to seed tag: %v", err)
		}
		f.tags[slug] = tag
	}
	created, err := catalogService.CreateIngredients(context.Background(), []catalog.IngredientInput{
		{Name: "flour", MeasurementUnit: "g"},
		{Name: "egg", MeasurementUnit: "pcs"},
		{Name: "milk", MeasurementUnit: "ml"},
		{Name: "salt", MeasurementUnit: "pinch"},
	})
	if err != nil {
		t.Fatalf("failed to seed ingredients: %v", err)
	}
	for _, ingredient := range created {
		f.ingredients[ingredient.Name] = ingredient
	}
	return f
}

func (f *fixture) createUser(t *testing.T, username string) users.User {
	t.Helper()
	user := users.User{
		Email:        fmt.Sprintf("%s@example.com", username),
		Username:     username,
		FirstName:    username,
		LastName:     "Cook",
		PasswordHash: "x",
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (f *fixture) tagIDs(slugs ...string) []uint {
	ids := make([]uint, 0, len(slugs))
	for _, slug := range slugs {
		ids = append(ids, f.tags[slug].ID)
	}
	return ids
}

func (f *fixture) line(name string, amount int) IngredientAmount {
	return IngredientAmount{ID: f.ingredients[name].ID, Amount: amount}
}

func (f *fixture) createRecipe(t *testing.T, authorID uint, name string, tags []uint, lines ...IngredientAmount) Recipe {
	t.Helper()
	recipe, err := f.service.Create(context.Background(), authorID, RecipeInput{
		Name:        name,
		Text:        "Mix and cook.",
		Image:       "data:image/png;base64,iVBORw0KGgo=",
		CookingTime: 15,
		Tags:        tags,
		Ingredients: lines,
	})
	if err != nil {
		t.Fatalf("failed to create recipe %q: %v", name, err)
	}
	return recipe
}

func recipeTitles(recipes []Recipe) []string {
	titles := make([]string, 0, len(recipes))
	for _, recipe := range recipes {
		titles = append(titles, recipe.Title)
	}
	return titles
}
