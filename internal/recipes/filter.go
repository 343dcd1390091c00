package recipes

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"gorm.io/gorm"
)

const opParseFilter = "recipes.parse_filter"

// Anonymous membership policies for a true is_favorited / is_in_shopping_cart flag sent by a
// caller without a token.
const (
	// AnonymousMembershipAny matches recipes present in any user's table.
	AnonymousMembershipAny = "any"
	// AnonymousMembershipNone matches nothing.
	AnonymousMembershipNone = "none"
)

// OptionalBool is a tri-state query flag: absent, true or false.
type OptionalBool struct {
	Set   bool
	Value bool
}

// IsTrue reports whether the flag was supplied and set to true.
func (b OptionalBool) IsTrue() bool {
	return b.Set && b.Value
}

// ParseOptionalBool accepts "", "1", "true", "0" and "false".
func ParseOptionalBool(raw string) (OptionalBool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return OptionalBool{}, nil
	case "1", "true":
		return OptionalBool{Set: true, Value: true}, nil
	case "0", "false":
		return OptionalBool{Set: true, Value: false}, nil
	default:
		return OptionalBool{}, fmt.Errorf("%q is not one of 1, true, 0, false", raw)
	}
}

// AuthorRef selects recipes of one author, either by id or as the viewer ("me").
type AuthorRef struct {
	ID uint
	Me bool
}

// IsSet reports whether an author restriction was requested.
func (a AuthorRef) IsSet() bool {
	return a.Me || a.ID != 0
}

// ParseAuthorRef accepts "", "me" or a positive integer id.
func ParseAuthorRef(raw string) (AuthorRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AuthorRef{}, nil
	}
	if strings.EqualFold(raw, "me") {
		return AuthorRef{Me: true}, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return AuthorRef{}, fmt.Errorf("%q is not a user id or \"me\"", raw)
	}
	return AuthorRef{ID: uint(id)}, nil
}

// Filter narrows a recipe listing. Tags match any of the slugs; all other criteria are
// combined with AND.
type Filter struct {
	Tags             []string
	IsFavorited      OptionalBool
	IsInShoppingCart OptionalBool
	Author           AuthorRef
}

// ParseFilter reads tags, is_favorited, is_in_shopping_cart and author from query values.
func ParseFilter(values url.Values) (Filter, error) {
	var filter Filter
	fields := map[string]string{}

	for _, slug := range values["tags"] {
		if slug = strings.TrimSpace(slug); slug != "" {
			filter.Tags = append(filter.Tags, slug)
		}
	}

	var err error
	if filter.IsFavorited, err = ParseOptionalBool(values.Get("is_favorited")); err != nil {
		fields["is_favorited"] = err.Error()
	}
	if filter.IsInShoppingCart, err = ParseOptionalBool(values.Get("is_in_shopping_cart")); err != nil {
		fields["is_in_shopping_cart"] = err.Error()
	}
	if filter.Author, err = ParseAuthorRef(values.Get("author")); err != nil {
		fields["author"] = err.Error()
	}

	if len(fields) > 0 {
		return Filter{}, apperror.Validation(opParseFilter, "invalid_query", "invalid filter parameters", fields)
	}
	return filter, nil
}

// scope builds the query predicate for filter as seen by viewerID (nil for anonymous callers).
// Every criterion is a subquery on recipes.id, so the result never repeats a recipe.
func (f Filter) scope(viewerID *uint, anonymousMembership string) (func(*gorm.DB) *gorm.DB, error) {
	if f.Author.Me && viewerID == nil {
		return nil, apperror.Validation(opParseFilter, "anonymous_author_me", "author=me requires authentication",
			map[string]string{"author": "author=me requires authentication"})
	}

	return func(db *gorm.DB) *gorm.DB {
		if len(f.Tags) > 0 {
			db = db.Where("recipes.id IN (SELECT recipe_tags.recipe_id FROM recipe_tags JOIN tags ON tags.id = recipe_tags.tag_id WHERE tags.slug IN ?)", f.Tags)
		}
		db = membershipScope(db, "favorites", f.IsFavorited, viewerID, anonymousMembership)
		db = membershipScope(db, "cart_entries", f.IsInShoppingCart, viewerID, anonymousMembership)
		switch {
		case f.Author.Me:
			db = db.Where("recipes.author_id = ?", *viewerID)
		case f.Author.ID != 0:
			db = db.Where("recipes.author_id = ?", f.Author.ID)
		}
		return db
	}, nil
}

// membershipScope restricts to recipes present in table. A false or absent flag restricts nothing.
func membershipScope(db *gorm.DB, table string, flag OptionalBool, viewerID *uint, anonymousMembership string) *gorm.DB {
	if !flag.IsTrue() {
		return db
	}
	if viewerID != nil {
		return db.Where(fmt.Sprintf("recipes.id IN (SELECT recipe_id FROM %s WHERE user_id = ?)", table), *viewerID)
	}
	if anonymousMembership == AnonymousMembershipNone {
		return db.Where("1 = 0")
	}
	return db.Where(fmt.Sprintf("recipes.id IN (SELECT recipe_id FROM %s)", table))
}
