package logging

import (
	"os"
	"strings"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/config"

	log "github.com/sirupsen/logrus"
)

// Setup configures the process-wide logrus logger from configuration.
// Unknown levels fall back to info.
func Setup(cfg config.Config) {
	log.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.LogFormat, "text") {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
