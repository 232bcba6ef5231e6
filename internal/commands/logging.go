package commands

import (
	"strings"

	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

const commandModuleRoot = "ghostzola.commands"

// CommandLogger returns a module-scoped logger for command handlers with the
// fields every command entry carries.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
