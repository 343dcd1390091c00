package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/MarcoPoloResearchLab/foodgram/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew        = "catalog.service.new"
	opListTags          = "catalog.list_tags"
	opGetTag            = "catalog.get_tag"
	opCreateTag         = "catalog.create_tag"
	opListIngredients   = "catalog.list_ingredients"
	opGetIngredient     = "catalog.get_ingredient"
	opCreateIngredients = "catalog.create_ingredients"
	opDeleteUnit        = "catalog.delete_unit"

	defaultTagColor = "#FF0000"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
	likeEscaper        = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// ServiceConfig describes the dependencies of the catalog service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service manages tags, measurement units and ingredients.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.Internal(opServiceNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// ListTags returns every tag ordered by id.
func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&tags).Error; err != nil {
		s.logError(opListTags, "query_failed", err)
		return nil, apperror.Internal(opListTags, "query_failed", err)
	}
	return tags, nil
}

// GetTag loads a tag by id.
func (s *Service) GetTag(ctx context.Context, id uint) (Tag, error) {
	var tag Tag
	err := s.db.WithContext(ctx).Take(&tag, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Tag{}, apperror.New(opGetTag, "not_found", apperror.ErrNotFound, "tag not found", err)
	}
	if err != nil {
		s.logError(opGetTag, "query_failed", err, zap.Uint("tag_id", id))
		return Tag{}, apperror.Internal(opGetTag, "query_failed", err)
	}
	return tag, nil
}

// CreateTag stores a new tag; name and slug must be unused.
func (s *Service) CreateTag(ctx context.Context, input TagInput) (Tag, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Slug = strings.TrimSpace(input.Slug)
	input.Color = strings.TrimSpace(input.Color)
	if fields := validation.ValidateStruct(&input); fields != nil {
		return Tag{}, apperror.Validation(opCreateTag, "invalid_input", fields.Error(), fields)
	}
	if input.Color == "" {
		input.Color = defaultTagColor
	}

	tag := Tag{Name: input.Name, Slug: input.Slug, Color: strings.ToUpper(input.Color)}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if apperror.IsUniqueViolation(err) {
			return Tag{}, apperror.Validation(opCreateTag, "duplicate", "tag with this name or slug already exists", nil)
		}
		s.logError(opCreateTag, "insert_failed", err, zap.String("slug", input.Slug))
		return Tag{}, apperror.Internal(opCreateTag, "insert_failed", err)
	}
	return tag, nil
}

// ListIngredients returns ingredients whose name starts with namePrefix (case-insensitive),
// or all ingredients when the prefix is empty.
func (s *Service) ListIngredients(ctx context.Context, namePrefix string) ([]Ingredient, error) {
	query := s.db.WithContext(ctx).Preload("Unit").Order("name ASC").Order("id ASC")
	if prefix := strings.ToLower(strings.TrimSpace(namePrefix)); prefix != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%")
	}

	var ingredients []Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		s.logError(opListIngredients, "query_failed", err)
		return nil, apperror.Internal(opListIngredients, "query_failed", err)
	}
	return ingredients, nil
}

// GetIngredient loads an ingredient with its unit.
func (s *Service) GetIngredient(ctx context.Context, id uint) (Ingredient, error) {
	var ingredient Ingredient
	err := s.db.WithContext(ctx).Preload("Unit").Take(&ingredient, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Ingredient{}, apperror.New(opGetIngredient, "not_found", apperror.ErrNotFound, "ingredient not found", err)
	}
	if err != nil {
		s.logError(opGetIngredient, "query_failed", err, zap.Uint("ingredient_id", id))
		return Ingredient{}, apperror.Internal(opGetIngredient, "query_failed", err)
	}
	return ingredient, nil
}

// CreateIngredients imports ingredients in one transaction. Units are created on first use
// and an existing (name, unit) pair is reused instead of duplicated. Names are lower-cased.
func (s *Service) CreateIngredients(ctx context.Context, inputs []IngredientInput) ([]Ingredient, error) {
	if len(inputs) == 0 {
		return nil, apperror.Validation(opCreateIngredients, "empty_input", "at least one ingredient is required", nil)
	}
	fields := map[string]string{}
	for index := range inputs {
		inputs[index].Name = strings.ToLower(strings.TrimSpace(inputs[index].Name))
		inputs[index].MeasurementUnit = strings.TrimSpace(inputs[index].MeasurementUnit)
		for name, message := range validation.ValidateStruct(&inputs[index]) {
			fields[fmt.Sprintf("[%d].%s", index, name)] = message
		}
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(opCreateIngredients, "invalid_input", validation.FieldErrors(fields).Error(), fields)
	}

	created := make([]Ingredient, 0, len(inputs))
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		units := map[string]*Unit{}
		for _, input := range inputs {
			unit, ok := units[input.MeasurementUnit]
			if !ok {
				unit = &Unit{}
				if err := tx.Where(Unit{Name: input.MeasurementUnit}).FirstOrCreate(unit).Error; err != nil {
					s.logError(opCreateIngredients, "unit_upsert_failed", err, zap.String("unit", input.MeasurementUnit))
					return apperror.Internal(opCreateIngredients, "unit_upsert_failed", err)
				}
				units[input.MeasurementUnit] = unit
			}

			var ingredient Ingredient
			lookup := tx.Where("name = ? AND unit_id = ?", input.Name, unit.ID).Limit(1).Find(&ingredient)
			err := lookup.Error
			if err == nil && lookup.RowsAffected == 0 {
				unitID := unit.ID
				ingredient = Ingredient{Name: input.Name, UnitID: &unitID}
				err = tx.Create(&ingredient).Error
			}
			if err != nil {
				s.logError(opCreateIngredients, "ingredient_upsert_failed", err, zap.String("name", input.Name))
				return apperror.Internal(opCreateIngredients, "ingredient_upsert_failed", err)
			}
			ingredient.Unit = unit
			created = append(created, ingredient)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return created, nil
}

// DeleteUnit removes a unit by name. Its ingredients are kept with a NULL unit.
func (s *Service) DeleteUnit(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	var detached int64
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit Unit
		err := tx.Where("name = ?", name).Take(&unit).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(opDeleteUnit, "not_found", apperror.ErrNotFound, "unit not found", err)
		}
		if err != nil {
			return apperror.Internal(opDeleteUnit, "query_failed", err)
		}

		result := tx.Model(&Ingredient{}).Where("unit_id = ?", unit.ID).Update("unit_id", nil)
		if result.Error != nil {
			return apperror.Internal(opDeleteUnit, "detach_failed", result.Error)
		}
		detached = result.RowsAffected

		if err := tx.Delete(&unit).Error; err != nil {
			return apperror.Internal(opDeleteUnit, "delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if apperror.KindOf(txErr) == nil {
			s.logError(opDeleteUnit, "transaction_failed", txErr, zap.String("unit", name))
		}
		return 0, txErr
	}
	return detached, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("catalog service error", attrs...)
}
