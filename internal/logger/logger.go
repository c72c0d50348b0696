package logger

import "go.uber.org/zap"

// New builds the process logger: JSON in production, console otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
