package validator

import (
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// cell: an index on the 3x3 board.
	mustRegister("cell", func(fl validator.FieldLevel) bool {
		v := fl.Field().Int()
		return v >= 0 && v < game.CellCount
	})
	// difficulty: a named computer difficulty; empty is left to omitempty.
	mustRegister("difficulty", func(fl validator.FieldLevel) bool {
		d, err := bot.ParseDifficulty(fl.Field().String())
		return err == nil && d != ""
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func GetValidator() *validator.Validate {
	return validate
}
