package logger_test

import (
	"errors"

	"github.com/wonny/salescast/pkg/config"
	"github.com/wonny/salescast/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	})

	log.WithFields(map[string]interface{}{
		"item_id":  "FOODS_1_001",
		"store_id": "CA_1",
		"date":     "2016-05-23",
	}).Info("Prediction served")

	err := errors.New("no price history for pair")
	log.WithError(err).WithField("item_id", "HOBBIES_2_149").Warn("Prediction rejected")
}
