package xtlog

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate
var once sync.Once

func validateConfig(cfg *Config) error {
	const op = "xtlog.validateConfig"
	if cfg == nil {
		return fmt.Errorf("%s: %s", op, errMsgNilConfig)
	}

	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%s: %s %w", op, errMsgConfigInvalid, err)
	}

	return nil
}
