package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/library-service/internal/application"
	"github.com/example/library-service/internal/config"
	"github.com/example/library-service/internal/logging"
	"github.com/example/library-service/internal/persistence"
	"github.com/example/library-service/internal/persistence/sqlite"
)

const (
	seedAdminEmail    = "admin@library.local"
	seedAdminName     = "Administrator"
	seedAdminPassword = "Admin@123"
)

var seedBooks = []persistence.Book{
	{
		Title:       "The Go Programming Language",
		Author:      "Alan A. A. Donovan",
		Genre:       "Programming",
		ISBN:        "9780134190440",
		TotalCopies: 3,
	},
	{
		Title:       "Designing Data-Intensive Applications",
		Author:      "Martin Kleppmann",
		Genre:       "Programming",
		ISBN:        "9781449373320",
		TotalCopies: 2,
	},
	{
		Title:       "The Name of the Wind",
		Author:      "Patrick Rothfuss",
		Genre:       "Fantasy",
		ISBN:        "9780756404741",
		TotalCopies: 4,
	},
}

// NewSeedCommand creates the command that loads development seed data.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load development seed data",
		Long: `Load development seed data: an administrator account and a small
catalog. Seeding is idempotent; existing rows are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
}

func runSeed(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.NewLogger(os.Stdout, cfg.LogLevel)

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	userRepo := sqlite.NewUserRepository(pool)
	bookRepo := sqlite.NewBookRepository(pool)

	if _, err := userRepo.GetUserByEmail(ctx, seedAdminEmail); err == nil {
		logger.Info("admin account already present", "email", seedAdminEmail)
	} else if errors.Is(err, persistence.ErrNotFound) {
		hash, err := application.CreatePasswordHash(seedAdminPassword, application.DefaultArgon2idParams)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		admin := persistence.User{
			ID:           uuid.NewString(),
			Name:         seedAdminName,
			Email:        seedAdminEmail,
			PasswordHash: hash,
			Role:         persistence.RoleAdmin,
			CreatedAt:    time.Now(),
		}
		if err := userRepo.CreateUser(ctx, admin); err != nil {
			return fmt.Errorf("create admin account: %w", err)
		}
		logger.Info("admin account created", "email", seedAdminEmail)
	} else {
		return fmt.Errorf("look up admin account: %w", err)
	}

	for _, book := range seedBooks {
		if _, err := bookRepo.GetBookByISBN(ctx, book.ISBN); err == nil {
			logger.Info("book already present", "isbn", book.ISBN)
			continue
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("look up book %s: %w", book.ISBN, err)
		}

		book.ID = uuid.NewString()
		book.AvailableCopies = book.TotalCopies
		book.CreatedAt = time.Now()
		if err := bookRepo.CreateBook(ctx, book); err != nil {
			return fmt.Errorf("create book %s: %w", book.ISBN, err)
		}
		logger.Info("book created", "isbn", book.ISBN, "title", book.Title)
	}

	return nil
}
