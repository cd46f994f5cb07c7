package cmd

import (
	"encoding/json"
	"os"

	"github.com/xlsmtools/xlsm-cli/engine"
)

// ExitError signals a non-zero exit code without printing an error message.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return "" }

func jsonPrint(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult prints the result envelope. Failed operations exit with
// code 2; the envelope on stdout already carries the error detail.
func printResult(res engine.Result) error {
	if err := jsonPrint(res); err != nil {
		return err
	}
	if res.Status == engine.StatusError {
		return &ExitError{Code: 2}
	}
	return nil
}
