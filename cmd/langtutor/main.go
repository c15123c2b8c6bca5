package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// API keys may come from a .env file in the working directory
	_ = godotenv.Load()

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "config":
		err = cmdConfig()
	case "provider":
		err = cmdProvider(os.Args[2:])
	case "exercise":
		err = cmdExercise(os.Args[2:])
	case "generate":
		err = cmdGenerate(os.Args[2:])
	case "check":
		err = cmdCheck(os.Args[2:])
	case "hints":
		err = cmdHints(os.Args[2:])
	case "ask":
		err = cmdAsk(os.Args[2:])
	case "session":
		err = cmdSession(os.Args[2:])
	case "stats":
		err = cmdStats()
	case "mcp":
		err = cmdMCP()
	case "serve":
		err = cmdServe(os.Args[2:])
	case "server":
		err = cmdServer(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("langtutor %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Language Tutor - Writing practice with AI feedback

Usage:
  langtutor <command> [arguments]

Setup Commands:
  init            Initialize configuration (first-time setup)
  config          Show current configuration
  provider        Manage model providers

Exercise Commands:
  exercise list   List languages or exercise types
  exercise info   Show exercise type details

Practice Commands:
  generate        Generate an exercise and start a session
  check           Check your writing for the current exercise
  hints           Generate hints, or start a custom exercise
  ask             Ask a question about the exercise

Session Commands:
  session list    List saved sessions
  session show    Show a session
  session export  Export a session to Markdown
  session delete  Delete a session
  stats           Show practice statistics

Integration Commands:
  mcp             Start MCP server on stdio
  serve           Run the HTTP API in the foreground
  server start    Start the HTTP API in the background
  server stop     Stop the background HTTP API
  server status   Show HTTP API status
  server logs     Show recent log entries

Other:
  help            Show this help message
  version         Show version information

Examples:
  langtutor provider set-key openrouter
  langtutor generate -lang pl -level B1 -type "życzenia (wishes)"
  langtutor check -file essay.txt
  langtutor ask -model "GPT-4o" "Is this sentence formal enough?"
  langtutor session export`)
}
