package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/term"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/mailsage/internal/config"
	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/logger"
)

const (
	oauthPortRangeStart = 8580
	oauthPortRangeEnd   = 8599
	oauthTimeout        = 3 * time.Minute
	tokenFileName       = "token.json"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Gmail authorization",
	Long: `Authorize mailsage to read your Gmail account.

mailsage requests the read-only Gmail scope; it cannot send, modify or
delete mail. The OAuth token is stored locally under ~/.mailsage.

Examples:
  # Run the browser authorization flow
  mailsage auth login

  # Check whether a valid token is present
  mailsage auth status

  # Remove the stored token
  mailsage auth logout`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize Gmail access via the browser",
	RunE:  runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored token state",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored Gmail token",
	RunE:  runAuthLogout,
}

var (
	authClientID     string
	authClientSecret string
)

func init() {
	authLoginCmd.Flags().StringVar(&authClientID, "client-id", "", "OAuth client ID (overrides config)")
	authLoginCmd.Flags().StringVar(&authClientSecret, "client-secret", "", "OAuth client secret (overrides config)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	clientID := authClientID
	if clientID == "" {
		clientID = cfg.Gmail.ClientID
	}
	if clientID == "" {
		return fmt.Errorf("%w: gmail.client_id is not set", domain.ErrConfiguration)
	}

	clientSecret := authClientSecret
	if clientSecret == "" {
		clientSecret = cfg.Gmail.ClientSecret
	}
	if clientSecret == "" {
		var err error
		clientSecret, err = promptSecret(cmd, "Client secret: ")
		if err != nil {
			return err
		}
	}
	if clientSecret == "" {
		return fmt.Errorf("%w: gmail.client_secret is not set", domain.ErrConfiguration)
	}

	port, err := findAvailablePort(oauthPortRangeStart, oauthPortRangeEnd)
	if err != nil {
		return err
	}

	state := uuid.New().String()
	callback := newOAuthCallbackServer(port, state)
	if err := callback.Start(); err != nil {
		return err
	}
	defer callback.Stop()

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  callback.RedirectURI(),
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}

	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	cmd.Println("Opening browser for Gmail authorization...")
	cmd.Println("If the browser does not open, visit:")
	cmd.Println()
	cmd.Println("  " + authURL)
	cmd.Println()
	if err := openBrowser(authURL); err != nil {
		logger.Debug("could not open browser: %v", err)
	}

	code, err := callback.WaitForCode(oauthTimeout)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	token, err := oauthCfg.Exchange(cmd.Context(), code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	if err := saveToken(token); err != nil {
		return err
	}

	cmd.Println("Authorization complete. Token stored.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	token, err := loadToken()
	if os.IsNotExist(err) {
		cmd.Println("Not authorized. Run 'mailsage auth login' first.")
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Println("Token present.")
	if token.RefreshToken != "" {
		cmd.Println("Refresh token: yes")
	} else {
		cmd.Println("Refresh token: no")
	}
	if token.Expiry.IsZero() {
		cmd.Println("Expiry: none recorded")
	} else if token.Valid() {
		cmd.Printf("Access token valid until %s\n", token.Expiry.Format(time.RFC3339))
	} else {
		cmd.Printf("Access token expired at %s (will refresh on use)\n", token.Expiry.Format(time.RFC3339))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			cmd.Println("No stored token.")
			return nil
		}
		return fmt.Errorf("removing token: %w", err)
	}
	cmd.Println("Token removed.")
	return nil
}

// promptSecret reads a secret without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func tokenPath() (string, error) {
	dir, err := config.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, tokenFileName), nil
}

func saveToken(token *oauth2.Token) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

func loadToken() (*oauth2.Token, error) {
	path, err := tokenPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	return &token, nil
}

// gmailTokenSource builds a refreshing token source from the stored token.
func gmailTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := loadToken()
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: not authorized, run 'mailsage auth login' first", domain.ErrConfiguration)
	}
	if err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}
	return oauthCfg.TokenSource(ctx, token), nil
}
