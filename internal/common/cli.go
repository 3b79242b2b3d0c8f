package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLI holds the flags every tool shares and the config/logger they produce.
// Precedence is environment, then the YAML file, then explicit flags.
type CLI struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	Config *Config
	Logger *zap.Logger
}

// Bind registers the shared persistent flags on cmd.
func (c *CLI) Bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&c.ConfigPath, "config", os.Getenv("AQ_CONFIG"), "YAML config file")
	f.StringVar(&c.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&c.LogFormat, "log-format", "", "Log format (json, console)")
}

// Setup loads the config and builds the logger. Use as PersistentPreRunE.
func (c *CLI) Setup(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(c.ConfigPath)
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.LogFormat = c.LogFormat
	}

	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger = logger.With(zap.String("tool", cmd.Root().Name()))
	return nil
}

// Sync flushes the logger. Use as PersistentPostRun.
func (c *CLI) Sync(*cobra.Command, []string) {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Banner prints a boxed title followed by aligned key/value lines.
func Banner(w io.Writer, title string, kv ...string) {
	rule := strings.Repeat("=", 57)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(w, "%-12s %s\n", kv[i]+":", kv[i+1])
	}
	if len(kv) > 0 {
		fmt.Fprintln(w)
	}
}
