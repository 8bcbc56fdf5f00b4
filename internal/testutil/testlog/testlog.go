package testlog

import (
	"testing"

	"github.com/xformctl/xformctl/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log := logging.New("test")
	log.Info().Str("test", t.Name()).Msg("start")
}
