package logging

import (
	"io"
	"os"

	"github.com/apex/log"
	jsonhandler "github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"

	"rideon-backend/internal/config"
)

// Setup configures the process-wide apex/log logger from config.
func Setup(cfg config.Config) {
	SetupWriter(cfg, os.Stdout)
}

func SetupWriter(cfg config.Config, w io.Writer) {
	if cfg.LogFormat == "text" {
		log.SetHandler(text.New(w))
	} else {
		log.SetHandler(jsonhandler.New(w))
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
