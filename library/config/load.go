package config

import (
	"path/filepath"
	"strings"

	"github.com/Laisky/xero-mcp/library/log"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
)

// LoadFromFile loads the YAML configuration at cfgPath into the shared settings.
// An empty path keeps the flag and environment defaults, which is how stdio
// clients usually launch the server.
func LoadFromFile(cfgPath string) {
	if strings.TrimSpace(cfgPath) == "" {
		log.Logger.Info("no configuration file, use flags and environment")
		return
	}

	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}
