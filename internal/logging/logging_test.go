package logging

import (
	"testing"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/config"

	log "github.com/sirupsen/logrus"
)

func TestSetup(t *testing.T) {
	defer log.SetFormatter(&log.TextFormatter{})
	defer log.SetLevel(log.InfoLevel)

	Setup(config.Config{LogLevel: "debug", LogFormat: "json"})
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level")
	}
	if _, ok := log.StandardLogger().Formatter.(*log.JSONFormatter); !ok {
		t.Fatalf("expected json formatter")
	}

	Setup(config.Config{LogLevel: "nonsense", LogFormat: "TEXT"})
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("expected fallback to info")
	}
	if _, ok := log.StandardLogger().Formatter.(*log.TextFormatter); !ok {
		t.Fatalf("expected text formatter")
	}
}
