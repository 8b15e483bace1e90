package runner

import (
	"errors"
	"fmt"

	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/pipeline"
)

// Exit codes of the CLI.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitPartial = 3
)

// ExitError is returned when the CLI should exit with a non-zero code.
// Using a typed error instead of os.Exit ensures deferred cleanup runs.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCodeFromError maps a fatal run error to an exit code. Input errors
// exit with ExitConfig, anything else with ExitFailure.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *docgen.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	return ExitFailure
}

// ExitCodeFromFailures returns ExitPartial if strict is set and any unit
// failed, ExitOK otherwise.
func ExitCodeFromFailures(failures []pipeline.UnitResult, strict bool) int {
	if !strict {
		return ExitOK
	}
	for _, f := range failures {
		if !f.OK() {
			return ExitPartial
		}
	}
	return ExitOK
}
