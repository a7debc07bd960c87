package echoapi

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/examhall/core"
)

// SetCountdownTick changes the countdown tick; the returned func restores it.
func SetCountdownTick(d time.Duration) (restore func()) {
	prev := countdownTick
	countdownTick = d
	return func() { countdownTick = prev }
}

func NewHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return newAppHTTPErrorHandler(logger, translator, signalShutdown)
}
