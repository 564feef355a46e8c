package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/hession/krishimate/internal/agent"
	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/memory"
)

const (
	Version = "0.1.0"

	// DefaultUserID identifies the farmer when no /user is set
	DefaultUserID = "default"

	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// REPL is the interactive advisory session.
type REPL struct {
	supervisor *agent.Supervisor
	memCmds    *MemoryCommands
	userID     string
}

// NewREPL creates the interactive session
func NewREPL(sup *agent.Supervisor, eng *memory.Engine) *REPL {
	return &REPL{
		supervisor: sup,
		memCmds:    NewMemoryCommands(eng),
		userID:     DefaultUserID,
	}
}

// printWelcome prints the welcome banner
func printWelcome() {
	fmt.Printf("\n%s🌾 KrishiMate v%s%s - Your Farming Companion\n", colorCyan, Version, colorReset)
	fmt.Printf("%sAsk about crops, mandi prices, weather, schemes or soil%s\n", colorGray, colorReset)
	fmt.Printf("%sType /help for help, /exit to quit%s\n\n", colorGray, colorReset)
}

// getHistoryFilePath returns the readline history file path
func getHistoryFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	historyDir := filepath.Join(homeDir, ".krishimate")
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return ""
	}
	return filepath.Join(historyDir, "history")
}

// Run runs the interactive REPL with readline support
func (r *REPL) Run() error {
	printWelcome()

	rlConfig := &readline.Config{
		Prompt:          fmt.Sprintf("%sYou: %s", colorGreen, colorReset),
		HistoryFile:     getHistoryFilePath(),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:      true,
		DisableAutoSaveHistory: false,
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Printf("\n\n%sGoodbye! 👋%s\n", colorCyan, colorReset)
		cancel()
		rl.Close()
		os.Exit(0)
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Printf("\n%sPress Ctrl+C again or type /exit to quit%s\n", colorYellow, colorReset)
				continue
			}
			if err == io.EOF {
				fmt.Printf("\n%sGoodbye! 👋%s\n", colorCyan, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		// Handle built-in commands
		if strings.HasPrefix(input, "/") {
			if r.handleCommand(input) {
				continue
			}
			return nil // /exit command
		}

		r.processInput(ctx, input)
	}
}

// processInput answers one farmer query
func (r *REPL) processInput(ctx context.Context, input string) {
	resp, err := r.supervisor.Answer(ctx, r.userID, input)
	if err != nil {
		fmt.Printf("\n%s❌ Error: %v%s\n\n", colorRed, err, colorReset)
		return
	}

	fmt.Printf("\n%sKrishiMate: %s%s\n", colorBlue, colorReset, resp.Text)

	if len(resp.Sources) > 0 {
		fmt.Printf("%s   Sources: %s%s\n", colorGray, strings.Join(resp.Sources, ", "), colorReset)
	}
	if resp.Degraded {
		fmt.Printf("%s   ⚠️ Some advisors were unavailable; answer may be incomplete%s\n", colorYellow, colorReset)
	}
	if len(resp.Stored) > 0 {
		fmt.Printf("%s   💾 Remembered %d new thing(s) about your farm%s\n", colorGray, len(resp.Stored), colorReset)
	}

	fmt.Println()
}

// handleCommand handles built-in commands, returns true to continue loop, false to exit
func (r *REPL) handleCommand(cmd string) bool {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true
	}

	command := strings.ToLower(parts[0])

	switch command {
	case "/help":
		printHelp()
		return true

	case "/memory":
		fmt.Println(r.memCmds.Handle(r.userID, parts[1:]))
		return true

	case "/user":
		if len(parts) < 2 {
			fmt.Printf("%sCurrent user: %s%s\n", colorGray, r.userID, colorReset)
		} else {
			r.userID = parts[1]
			fmt.Printf("%s✅ Switched to user %s%s\n", colorGreen, r.userID, colorReset)
		}
		return true

	case "/config":
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("%s❌ Failed to load config: %v%s\n", colorRed, err, colorReset)
		} else {
			fmt.Println(cfg.String())
		}
		return true

	case "/history":
		if len(parts) > 1 && parts[1] == "clear" {
			historyFile := getHistoryFilePath()
			if historyFile != "" {
				if err := os.WriteFile(historyFile, []byte{}, 0644); err != nil {
					fmt.Printf("%s❌ Failed to clear history: %v%s\n", colorRed, err, colorReset)
				} else {
					fmt.Printf("%s✅ Command history cleared%s\n", colorGreen, colorReset)
				}
			}
		} else {
			fmt.Printf("%sUse Up/Down arrow keys to browse command history%s\n", colorGray, colorReset)
			fmt.Printf("%sUse /history clear to clear history%s\n", colorGray, colorReset)
		}
		return true

	case "/exit", "/quit", "/q":
		fmt.Printf("%sGoodbye! 👋%s\n", colorCyan, colorReset)
		return false

	default:
		fmt.Printf("%s❓ Unknown command: %s%s\n", colorYellow, cmd, colorReset)
		fmt.Println("Type /help for available commands")
		return true
	}
}

// printHelp prints help information
func printHelp() {
	fmt.Printf(`
%s📚 KrishiMate Help%s

%sBuilt-in Commands:%s
  /help                     - Show this help message
  /memory                   - Show what KrishiMate remembers about you
  /memory search <keyword>  - Search your farm memory
  /memory category <name>   - List facts in one category
  /memory delete <id>       - Delete one remembered fact
  /memory clear             - Forget everything about you
  /user <id>                - Switch to another farmer profile
  /config                   - Show current configuration
  /history clear            - Clear command history
  /exit                     - Exit program

%sExamples:%s
  "My cotton leaves are turning yellow"
  "What is the mandi price for chilli in Khammam?"
  "Can I spray pesticide tomorrow in Warangal?"
  "Am I eligible for Rythu Bandhu?"
  "How much urea for 3 acres of paddy?"

`, colorCyan, colorReset, colorYellow, colorReset, colorYellow, colorReset)
}
