package viewer

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/mediaview/pkg/preload"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func itemValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateItems checks that items is non-empty and that every item has an
// id, a source and a supported kind.
func ValidateItems(items []preload.Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidItems, preload.ErrEmptyItems)
	}
	v := itemValidator()
	for i, item := range items {
		if err := v.Struct(item); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidItems, i, err)
		}
	}
	return nil
}
