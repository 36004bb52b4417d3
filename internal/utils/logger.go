package utils

import "go.uber.org/zap"

// NewLogger returns a development logger for local envs and a JSON production logger otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" || env == "test" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
