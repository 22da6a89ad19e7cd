package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/wall_robot/internal/config"
)

// SetupLogging applies cfg.LogLevel. An unknown level keeps info.
func SetupLogging(cfg *config.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("config: %v, using info", err)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
