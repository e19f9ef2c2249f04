package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username and password",
		Long:  "Signs in to the server and stores the session token in ~/.config/vh/config.yaml. Missing credentials are read from stdin; VH_PASSWORD is used when --password is not given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("VH_PASSWORD")
			}
			return runLogin(cmd, username, password)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")

	return cmd
}

func runLogin(cmd *cobra.Command, username, password string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	var err error
	if username == "" {
		if username, err = prompt(out, reader, "Username: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = prompt(out, reader, "Password: "); err != nil {
			return err
		}
	}
	if err := validateCredentials(username, password); err != nil {
		return err
	}

	// Remember an explicit server so later commands use it.
	if flagServer != "" {
		cfg, err := loadConfig()
		if err != nil {
			cfg = CLIConfig{}
		}
		cfg.ServerURL = flagServer
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}

	_, provider := newSession()
	profile, err := provider.SignIn(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	if isJSON() {
		return printJSON(out, profile)
	}
	fmt.Fprintf(out, "✓ Signed in as %s (%s).\n", profile.Username, profile.Role)
	return nil
}

// validateCredentials checks that both credentials are present.
func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("no username provided")
	}
	if password == "" {
		return fmt.Errorf("no password provided")
	}
	return nil
}

// prompt writes label and reads one trimmed line.
func prompt(out io.Writer, reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
