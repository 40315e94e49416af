// Package cli wires the agent subcommands: argument parsing, config and
// logger construction, PID-file process control, and device plumbing around
// the turn engine.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/basnijholt/ai-assistant/internal/audio"
	"github.com/basnijholt/ai-assistant/internal/config"
	"github.com/basnijholt/ai-assistant/internal/logging"
	"github.com/basnijholt/ai-assistant/internal/proc"
	"github.com/basnijholt/ai-assistant/internal/ui"
)

var (
	cfgFile  string
	logLevel string
	logFile  string
	quiet    bool
)

// exitFunc is called for the double-interrupt hard exit. Tests replace it.
var exitFunc = os.Exit

// progressStatus returns a capture progress callback that rewrites one
// console line with the elapsed seconds.
func progressStatus(console *ui.Console, message string) func(float64) {
	lastShown := -1
	return func(seconds float64) {
		// One update per second is plenty for a status line.
		if int(seconds) != lastShown {
			lastShown = int(seconds)
			console.Status("%s... (%.1fs)", message, seconds)
		}
	}
}

// NewRootCommand assembles the ai-assistant command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ai-assistant",
		Short:         "AI-powered voice and text assistants on Wyoming ASR/TTS/wake-word servers and Ollama",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/ai-assistant/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress console output")

	root.AddCommand(
		newTranscribeCommand(),
		newSpeakCommand(),
		newInteractiveCommand(),
		newWakeWordAssistantCommand(),
		newAutocorrectCommand(),
	)
	return root
}

// Execute runs the CLI; errors exit non-zero through cobra.
func Execute() error {
	return NewRootCommand().Execute()
}

// env groups what every agent command needs at startup.
type env struct {
	cfg     config.Config
	logger  zerolog.Logger
	console *ui.Console
	close   func()
}

func setup() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLog, err := logging.New(logging.Options{Level: logLevel, File: logFile, Quiet: quiet})
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:     cfg,
		logger:  logger,
		console: ui.NewConsole(os.Stdout, quiet),
		close:   closeLog,
	}, nil
}

// control handles --stop/--status for a named agent. Returns true when the
// invocation was a control action and the command should exit.
func control(name, what string, stopFlag, statusFlag bool, console *ui.Console) (bool, error) {
	if stopFlag {
		killed, err := proc.Kill(name)
		if err != nil {
			return true, err
		}
		if killed {
			console.Print("%s stopped.", what)
		} else {
			console.Warn("No %s is running.", what)
		}
		return true, nil
	}
	if statusFlag {
		if pid, _ := proc.ReadPID(name); pid != 0 {
			console.Print("%s is running (PID: %d).", what, pid)
		} else {
			console.Warn("%s is not running.", what)
		}
		return true, nil
	}
	return false, nil
}

// trackPID registers this process for --stop/--status and returns the
// cleanup function.
func trackPID(name string, logger zerolog.Logger) func() {
	if err := proc.WritePID(name); err != nil {
		logger.Warn().Err(err).Msg("could not write PID file")
		return func() {}
	}
	return func() { _ = proc.Remove(name) }
}

// deviceIndex converts the -1 "unset" flag sentinel to an optional index.
func deviceIndex(v int) *int {
	if v < 0 {
		return nil
	}
	return &v
}

// openDevice initializes the PortAudio backend.
func openDevice() (audio.Device, error) {
	dev, err := audio.NewPortAudioDevice()
	if err != nil {
		return nil, fmt.Errorf("initialize audio: %w", err)
	}
	return dev, nil
}

// resolveInput picks the capture device from name/index flags and reports it.
func resolveInput(dev audio.Device, console *ui.Console, name string, index int) (*int, error) {
	idx, devName, err := audio.ResolveInput(dev, name, deviceIndex(index))
	if err != nil {
		return nil, err
	}
	if idx != nil {
		console.Print("Using input device %d (%s)", *idx, devName)
	}
	return idx, nil
}

// resolveOutput picks the playback device from name/index flags and reports it.
func resolveOutput(dev audio.Device, console *ui.Console, name string, index int) (*int, error) {
	idx, devName, err := audio.ResolveOutput(dev, name, deviceIndex(index))
	if err != nil {
		return nil, err
	}
	if idx != nil {
		console.Print("Using output device %d (%s)", *idx, devName)
	}
	return idx, nil
}
