// Package logging configures the process-wide apex/log logger.
package logging

import (
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

// Setup routes log output to w through the cli handler at the given level.
func Setup(w io.Writer, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	log.SetHandler(cli.New(w))
	log.SetLevel(lvl)
	return nil
}
