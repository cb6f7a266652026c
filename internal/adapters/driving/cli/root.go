// Package cli provides the cobra command tree for sercha-rag.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Command annotations read by setup.
const (
	// annotationNoServices marks commands that run without the core services.
	annotationNoServices = "no-services"

	// annotationSettingsOnly marks commands that only need settings and the
	// model registry, so they work while providers are unreachable.
	annotationSettingsOnly = "settings-only"
)

// version is set at build time.
var version = "dev"

// Options carries the global flags to the bootstrap function.
type Options struct {
	ConfigDir string
	DataDir   string
	Verbose   bool

	// SettingsOnly asks the bootstrap function for Settings and Models only.
	SettingsOnly bool
}

// Services holds the driving ports the commands call.
type Services struct {
	Ask           driving.AskService
	Retrieval     driving.RetrievalService
	Documents     driving.DocumentService
	Conversations driving.ConversationService
	Models        driving.ModelRegistry
	Settings      driving.SettingsService

	// Close releases the resources behind the services. Optional.
	Close func() error
}

// BootstrapFunc builds the services once the global flags are parsed.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

var (
	askService          driving.AskService
	retrievalService    driving.RetrievalService
	documentService     driving.DocumentService
	conversationService driving.ConversationService
	modelRegistry       driving.ModelRegistry
	settingsService     driving.SettingsService

	bootstrap     BootstrapFunc
	closeServices func() error
	globalOpts    Options
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Ask questions about your documents",
	Long: `sercha-rag answers questions grounded in the documents you upload.

Documents are split into chunks, embedded and indexed. Questions retrieve the
most similar chunks and an LLM streams an answer that cites them.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.ConfigDir, "config-dir", "", "configuration directory (default ~/.sercha-rag)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.DataDir, "data-dir", "", "data directory (default <config-dir>/data)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds the services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices injects the services directly, bypassing the bootstrap function.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	askService = s.Ask
	retrievalService = s.Retrieval
	documentService = s.Documents
	conversationService = s.Conversations
	modelRegistry = s.Models
	settingsService = s.Settings
	closeServices = s.Close
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// DefaultConfigDir returns ~/.sercha-rag.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".sercha-rag"), nil
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(globalOpts.Verbose)

	if globalOpts.ConfigDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return err
		}
		globalOpts.ConfigDir = dir
	}
	if globalOpts.DataDir == "" {
		globalOpts.DataDir = filepath.Join(globalOpts.ConfigDir, "data")
	}

	loadEnvFiles(".env", filepath.Join(globalOpts.ConfigDir, ".env"))

	if hasAnnotation(cmd, annotationNoServices) || bootstrap == nil || askService != nil || settingsService != nil {
		return nil
	}

	opts := globalOpts
	opts.SettingsOnly = hasAnnotation(cmd, annotationSettingsOnly)
	services, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("starting services: %w", err)
	}
	SetServices(services)
	return nil
}

// hasAnnotation reports whether cmd or one of its parents carries key.
func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}

func teardown(*cobra.Command, []string) error {
	return Close()
}

// Close releases the services built by the bootstrap function. It is safe to
// call more than once.
func Close() error {
	if closeServices == nil {
		return nil
	}
	closeFn := closeServices
	closeServices = nil
	return closeFn()
}

// loadEnvFiles loads the files that exist. Variables already set win.
func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.Warn("loading %s: %v", p, err)
		}
	}
}

var (
	errAskNotConfigured          = errors.New("ask service not configured")
	errRetrievalNotConfigured    = errors.New("retrieval service not configured")
	errDocumentNotConfigured     = errors.New("document service not configured")
	errConversationNotConfigured = errors.New("conversation service not configured")
	errModelsNotConfigured       = errors.New("model registry not configured")
	errSettingsNotConfigured     = errors.New("settings service not configured")
)
