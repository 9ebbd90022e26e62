package tests

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Layr-Labs/codehash/internal/config"
	"github.com/Layr-Labs/codehash/internal/logger"
	"go.uber.org/zap"
)

const (
	// TestAddress is the EigenLayer rewards coordinator on mainnet.
	TestAddress = "0x7750d328b314effa365a0402ccfd489b80b0adda"
	TestRpcUrl  = "https://rpc.test"
)

// GetConfig returns a valid configuration pointing at TestRpcUrl.
func GetConfig() *config.Config {
	return &config.Config{
		Debug:   os.Getenv("CODEHASH_DEBUG") == "true",
		Address: TestAddress,
		EthereumRpcConfig: config.EthereumRpcConfig{
			RpcUrl:   TestRpcUrl,
			BlockTag: "latest",
			Timeout:  time.Second * 5,
		},
		FetcherConfig: config.FetcherConfig{
			Backend:  config.FetcherBackend_Rpc,
			CastPath: "cast",
		},
		HashConfig: config.HashConfig{
			Algorithm: "keccak256",
		},
		OutputConfig: config.OutputConfig{
			File:   "codehash.txt",
			Format: config.OutputFormat_Text,
		},
	}
}

func GetLogger(cfg *config.Config) *zap.Logger {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	return l
}

// WriteFakeCast writes an executable shell script standing in for Foundry's
// cast binary and returns its path.
func WriteFakeCast(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake cast binary needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "cast")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}
