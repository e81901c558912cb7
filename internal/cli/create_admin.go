package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/example/library-service/internal/application"
	"github.com/example/library-service/internal/config"
	"github.com/example/library-service/internal/persistence"
	"github.com/example/library-service/internal/persistence/sqlite"
)

// NewCreateAdminCommand creates the command that provisions an administrator
// account interactively.
func NewCreateAdminCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create-admin <email>",
		Short: "Create an administrator account",
		Long: `Create an administrator account. The password is read from the
terminal without echo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateAdmin(cmd, args[0], name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "display name for the account")

	return cmd
}

func runCreateAdmin(cmd *cobra.Command, email, name string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	email = strings.ToLower(strings.TrimSpace(email))

	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), "Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("read password confirmation: %w", err)
	}

	password := string(passwordBytes)
	if password != string(confirmBytes) {
		return errors.New("passwords do not match")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	hash, err := application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userRepo := sqlite.NewUserRepository(pool)
	admin := persistence.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         persistence.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := userRepo.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return fmt.Errorf("an account with email %s already exists", email)
		}
		return fmt.Errorf("create admin account: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Administrator %s created.\n", email)
	return nil
}
