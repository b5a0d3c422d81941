package main

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name           string
		debug, verbose bool
		info, debugLvl bool
	}{
		{"quiet", false, false, false, false},
		{"server", false, true, true, false},
		{"debug", true, false, true, true},
		{"debug server", true, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := newLogger(tt.debug, tt.verbose)
			if err != nil {
				t.Fatalf("newLogger: %v", err)
			}
			defer func() { _ = logger.Sync() }()
			if got := logger.Core().Enabled(zap.InfoLevel); got != tt.info {
				t.Errorf("info enabled = %v, want %v", got, tt.info)
			}
			if got := logger.Core().Enabled(zap.DebugLevel); got != tt.debugLvl {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugLvl)
			}
		})
	}
}
