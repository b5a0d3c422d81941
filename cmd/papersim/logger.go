package main

import "go.uber.org/zap"

// newLogger returns the command logger. Debug uses zap's development config
// at debug level; verbose alone uses the production JSON config at info
// level; otherwise logging is off.
func newLogger(debug, verbose bool) (*zap.Logger, error) {
	if !debug && !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build(zap.Fields(zap.String("version", version)))
	if err != nil {
		return nil, err
	}
	return logger.Named("papersim"), nil
}
