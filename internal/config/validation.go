package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid value for %s (%s)", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	if _, err := time.LoadLocation(c.Bot.Timezone); err != nil {
		return fmt.Errorf("invalid bot.timezone %q: %w", c.Bot.Timezone, err)
	}

	if c.AI.Provider == "openai" && c.AI.Model == "" && len(c.AI.Models) == 0 {
		return errors.New("ai.model or ai.models is required for the openai provider")
	}
	if c.AI.Model != "" && len(c.AI.Models) > 0 && !slices.Contains(c.AI.Models, c.AI.Model) {
		return fmt.Errorf("ai.model %q is not listed in ai.models", c.AI.Model)
	}

	return nil
}
