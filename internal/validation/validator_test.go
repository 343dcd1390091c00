package validation

import "testing"

type signupForm struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=150,username"`
	Password string `json:"password" validate:"required,min=8,notnumeric"`
}

type lineForm struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"gte=1"`
}

type recipeForm struct {
	Name  string     `json:"name" validate:"required,max=200"`
	Lines []lineForm `json:"ingredients" validate:"min=1,dive"`
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Fatalf("expected the same validator instance")
	}
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	fields := ValidateStruct(&signupForm{Email: "not-an-email", Username: "bad name", Password: "12345678"})
	if fields == nil {
		t.Fatalf("expected validation failures")
	}
	expected := map[string]string{
		"email":    "email must be a valid email address",
		"username": "username may contain only letters, digits and @/./+/-/_",
		"password": "password must not be entirely numeric",
	}
	for name, message := range expected {
		if fields[name] != message {
			t.Fatalf("field %s: got %q want %q", name, fields[name], message)
		}
	}
}

func TestValidateStructAcceptsValidInput(t *testing.T) {
	fields := ValidateStruct(&signupForm{Email: "cook@example.com", Username: "cook.42", Password: "s3cret-pass"})
	if fields != nil {
		t.Fatalf("unexpected failures: %v", fields)
	}
}

func TestValidateStructReportsNestedPaths(t *testing.T) {
	testCases := []struct {
		name      string
		form      recipeForm
		wantField string
	}{
		{
			name:      "empty-lines",
			form:      recipeForm{Name: "Soup"},
			wantField: "ingredients",
		},
		{
			name:      "zero-amount",
			form:      recipeForm{Name: "Soup", Lines: []lineForm{{ID: 1, Amount: 0}}},
			wantField: "ingredients[0].amount",
		},
		{
			name:      "missing-name",
			form:      recipeForm{Lines: []lineForm{{ID: 1, Amount: 2}}},
			wantField: "name",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			fields := ValidateStruct(&testCase.form)
			if _, ok := fields[testCase.wantField]; !ok {
				t.Fatalf("expected failure on %s, got %v", testCase.wantField, fields)
			}
		})
	}
}

func TestFieldErrorsErrorIsSorted(t *testing.T) {
	fields := FieldErrors{"b": "second", "a": "first"}
	if fields.Error() != "first; second" {
		t.Fatalf("unexpected message %q", fields.Error())
	}
}
