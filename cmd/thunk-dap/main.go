package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thunklang/thunk-dap/internal/adapter"
	"github.com/thunklang/thunk-dap/internal/codec"
	"github.com/thunklang/thunk-dap/internal/frontend"
	"github.com/thunklang/thunk-dap/log"
)

// install: go install ./cmd/thunk-dap
const help = `
thunk-dap a debug adapter for the Thunk language

Usage: thunk-dap [OPTIONS]

Serves exactly one Debug Adapter Protocol session on stdin/stdout, then
exits. Options:
  --help   show help message
`

func main() {
	if err := handle(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func handle(args []string) error {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			fmt.Println(strings.TrimSpace(help))
			return nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, ".thunk-dap")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	logFile := filepath.Join(configDir, "thunk-dap.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer file.Close()

	logger := log.New(file)

	c := codec.New(os.Stdin, os.Stdout)
	client := frontend.New(c, logger)
	ad := adapter.New(client, logger)

	logger.Infof("thunk-dap starting, serving stdio")
	return ad.Serve()
}
