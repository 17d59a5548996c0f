package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pxfollow/pkg/auth"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Pixiv session cookies",
	Long: `Manage stored Pixiv session cookies.

Cookies are stored in:
  - the system keychain, when available
  - an encrypted file protected by PXFOLLOW_PASSPHRASE
  - PXFOLLOW_SESSION_COOKIE, read only

Never share your session cookie or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a Pixiv session cookie",
	Long: `Store the PHPSESSID cookie of a Pixiv login under a name.

You will be prompted for the cookie value; it is not echoed. The user ID
is taken from the cookie when it has the usual ID_random form.`,
	Example: `  pxfollow auth login
  pxfollow auth login main`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored cookies",
	Long: `Remove a stored account. Without a name and with a single stored
account, that account is removed after confirmation. Use --all to remove
every stored account.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var logoutAll bool

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager := newCredentialManager(logger.GetLogger())
	reader := bufio.NewReader(os.Stdin)

	auth.ShowCookieGuide(os.Stdout)

	name := "default"
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		if !confirm(reader, fmt.Sprintf("Account '%s' already exists. Replace its cookie?", name)) {
			return nil
		}
	}

	var cookie string
	for {
		fmt.Print("PHPSESSID cookie value: ")
		value, err := readSecret(reader)
		if err != nil {
			return fmt.Errorf("failed to read cookie: %w", err)
		}
		cookie = value
		if auth.LooksLikeSessionCookie(cookie) {
			break
		}
		ui.PrintWarning("That does not look like a PHPSESSID value (expected 12345678_AbCd...).")
		if !confirm(reader, "Try again?") {
			return fmt.Errorf("no valid cookie entered")
		}
	}

	fmt.Print("User agent of that browser (Enter for the default): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Name:          name,
		SessionCookie: cookie,
		UserAgent:     strings.TrimSpace(userAgent),
		LastModified:  time.Now(),
	}
	if id, ok := auth.UserIDFromCookie(cookie); ok {
		account.UserID = id
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess("Account saved: " + name)
	if account.UserID != "" {
		ui.PrintInfo("User ID", account.UserID)
	}
	fmt.Println("\nSwitch all follows to private with:")
	fmt.Printf("  pxfollow api --account %s\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager := newCredentialManager(logger.GetLogger())
	reader := bufio.NewReader(os.Stdin)

	if logoutAll {
		if !confirm(reader, "Remove ALL stored accounts?") {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove accounts: %w", err)
		}
		ui.PrintSuccess("All accounts removed")
		return nil
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintWarning("No stored accounts found")
			return nil
		}
		if len(accounts) > 1 {
			return fmt.Errorf("%d accounts stored, name the one to remove or use --all", len(accounts))
		}
		name = accounts[0].Name
		if !confirm(reader, fmt.Sprintf("Remove account '%s'?", name)) {
			return nil
		}
	}

	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	ui.PrintSuccess("Account removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager := newCredentialManager(logger.GetLogger())

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	printAccounts(os.Stdout, accounts)
	return nil
}

func printAccounts(w io.Writer, accounts []*auth.Account) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No stored accounts. Use 'pxfollow auth login' to add one.")
		return
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(w, "%d. %s\n", i+1, sanitized.Name)
		fmt.Fprintf(w, "   Cookie: %s\n", sanitized.SessionCookie)
		if sanitized.UserID != "" {
			fmt.Fprintf(w, "   User ID: %s\n", sanitized.UserID)
		}
		if sanitized.UserAgent != "" {
			fmt.Fprintf(w, "   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(w, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
	}
}

func confirm(reader *bufio.Reader, question string) bool {
	fmt.Printf("%s (y/N): ", question)
	answer, _ := reader.ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
