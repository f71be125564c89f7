package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"docterm/cmd/docterm/config"
	"docterm/internal/api"
	"docterm/internal/conversation"
	"docterm/internal/logging"
	"docterm/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool
	apiURL  string
	timeout time.Duration

	// Logger
	logger *zap.Logger
)

// app bundles the wired client stack for one command invocation.
type app struct {
	cfg      config.Config
	client   *api.Client
	sessions *session.Manager
	registry *conversation.Registry
}

// newApp loads config, wires transport, session and conversation state.
// Flags override config, config overrides defaults.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if err := logging.Initialize(dir, cfg.Debug || verbose); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	transport := api.NewTransport(cfg.APIURL)
	client := api.NewClient(transport)
	sessions := session.NewManager(client, session.NewStore(dir))
	registry := conversation.NewRegistry(client)

	return &app{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		registry: registry,
	}, nil
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "docterm",
	Short: "docterm - document-aware chat assistant for the terminal",
	Long: `docterm is a terminal client for a document-aware chat assistant.

It keeps a persistent login session, lets you manage multiple
conversations, attach documents for the assistant to ground its answers
in, and rate individual responses.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "docterm" && cmd.CalledAs() == "docterm" {
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

// loginCmd authenticates and stores the session token
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Authenticate and store the session token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

// registerCmd creates an account, then logs in with the same credentials
var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create an account and log in",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRegister,
}

// logoutCmd ends the session locally and best-effort server-side
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE:  runLogout,
}

// conversationsCmd lists and manages conversations
var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "List conversations",
	RunE:    listConversationsCLI,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteConversationCLI,
}

// statusCmd reports connectivity and session state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and backend status",
	RunE:  showStatus,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (or set DOCTERM_API_URL env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	conversationsCmd.AddCommand(conversationsDeleteCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// promptCredentials fills in whatever the command line did not supply.
func promptCredentials(args []string) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	username := ""
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		username = strings.TrimSpace(line)
	}

	fmt.Print("Password: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	password := strings.TrimSpace(line)

	if username == "" || password == "" {
		return "", "", fmt.Errorf("username and password are required")
	}
	return username, password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	username, password, err := promptCredentials(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.sessions.Login(ctx, username, password); err != nil {
		return err
	}
	logger.Info("logged in", zap.String("username", username))
	if id := a.sessions.CurrentIdentity(); id != nil {
		fmt.Printf("Logged in as %s\n", id.Username)
	} else {
		fmt.Println("Logged in")
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	username, password, err := promptCredentials(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.sessions.Register(ctx, username, password); err != nil {
		return err
	}
	logger.Info("registered", zap.String("username", username))
	fmt.Printf("Account created for %s. Run `docterm login` to sign in.\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if !a.sessions.Authenticated() {
		fmt.Println("Not logged in")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.sessions.Logout(ctx)
	fmt.Println("Logged out")
	return nil
}

func listConversationsCLI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.registry.Refresh(ctx); err != nil {
		return err
	}
	convs := a.registry.List()
	if len(convs) == 0 {
		fmt.Println("No conversations")
		return nil
	}
	for _, c := range convs {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %s\n", c.ID, title)
	}
	return nil
}

func deleteConversationCLI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.registry.Delete(ctx, args[0]); err != nil {
		return err
	}
	logger.Info("conversation deleted", zap.String("id", args[0]))
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	fmt.Println("docterm Status")
	fmt.Println("==============")
	fmt.Printf("Backend: %s\n", a.cfg.APIURL)

	if !a.sessions.Authenticated() {
		fmt.Println("✗ Not logged in")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	identity, err := a.sessions.ResolveIdentity(ctx)
	if err != nil {
		fmt.Printf("✗ Stored session is not valid: %v\n", err)
		return nil
	}
	fmt.Printf("✓ Logged in as %s (%s)\n", identity.Username, identity.Role)

	if err := a.registry.Refresh(ctx); err == nil {
		fmt.Printf("✓ %d conversation(s)\n", len(a.registry.List()))
	}
	return nil
}
