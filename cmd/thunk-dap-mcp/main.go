package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/thunklang/thunk-dap/internal/mcpsurface"
	golog "github.com/thunklang/thunk-dap/log"
)

// install: go install ./cmd/thunk-dap-mcp
const help = `
thunk-dap-mcp MCP server fronting the Thunk debugger

Usage: thunk-dap-mcp [OPTIONS]

Options:
  --listen <listen>   Listen address for SSE transport (default: stdio)
  --help              show help message
`

func main() {
	if err := handle(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func handle(args []string) error {
	var listen string
	n := len(args)
	for i, arg := range args {
		switch arg {
		case "--listen":
			if i+1 >= n {
				return fmt.Errorf("%s requires arg", arg)
			}
			listen = args[i+1]
		case "-h", "--help":
			fmt.Println(strings.TrimSpace(help))
			return nil
		}
	}

	s := server.NewMCPServer(
		"Thunk Debugger MCP",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get user home directory: %v", err)
	}
	configDir := filepath.Join(homeDir, ".thunk-dap")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Fatalf("Failed to create config directory: %v", err)
	}
	logFile := filepath.Join(configDir, "thunk-dap-mcp.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	logger := golog.New(file)

	if err := mcpsurface.RegisterTools(s, mcpsurface.ToolOptions{Logger: logger}); err != nil {
		return err
	}

	if listen == "" {
		log.Printf("MCP Server listening on stdio...")
		if err := server.ServeStdio(s); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	} else {
		log.Printf("MCP Server listening on %s...", listen)
		sseServer := server.NewSSEServer(s)
		if err := sseServer.Start(listen); err != nil {
			return err
		}
	}
	return nil
}
