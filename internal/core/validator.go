package core

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"moviesvc/internal/types"
)

// Validator wraps go-playground/validator and registers the custom tags used
// by request structs.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator with the notblank tag registered.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		// Only fails for an empty tag name or nil func.
		panic(err)
	}
	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s and converts failures into a
// validation_failed AppError listing the offending fields.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.logger.Error("validator misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, err.Error(), err)
	}

	fields := make(map[string]any, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
		names = append(names, fe.Field())
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationFailed,
		"invalid fields: "+strings.Join(names, ", "),
		err,
		map[string]any{"fields": fields},
	)
}
