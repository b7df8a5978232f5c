// Command lawdesk-admin performs maintenance tasks against the lawdesk
// database: creating users, resetting passwords and applying migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"lawdesk/internal/auth"
	"lawdesk/internal/cli"
	"lawdesk/internal/config"
	"lawdesk/internal/core"
	applog "lawdesk/internal/log"
	"lawdesk/internal/services"
	"lawdesk/internal/storage"
)

const usage = `usage: lawdesk-admin <command> [flags]

commands:
  create-user     create a user (defaults to an administrator)
  reset-password  set a new password for an existing user
  migrate         apply pending migrations and print the schema version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := config.Load()
	log := cli.SetupLogger(cfg, applog.ComponentApp).Slog()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "create-user":
		err = createUser(ctx, cfg, os.Args[2:])
	case "reset-password":
		err = resetPassword(ctx, cfg, os.Args[2:])
	case "migrate":
		err = migrate(cfg)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func userService(cfg *config.Config) (*services.UserService, *storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, err
	}
	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	return services.NewUserService(repo, auth.DefaultPolicy(), jwt), repo, nil
}

func createUser(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	email := fs.String("email", cfg.AdminEmail, "login email")
	password := fs.String("password", "", "initial password")
	name := fs.String("name", "System", "first name")
	surname := fs.String("surname", "Administrator", "surname")
	role := fs.String("role", string(core.RoleAdmin), "admin, lawyer, secretary or intern")
	fs.Parse(args)

	if *password == "" {
		return fmt.Errorf("-password is required")
	}
	users, repo, err := userService(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	u, err := users.CreateUserAsSystem(ctx, services.NewUser{
		Email: *email, Password: *password, Name: *name, Surname: *surname, Role: core.Role(*role),
	})
	if err != nil {
		return err
	}
	fmt.Printf("created user %d <%s> with role %s\n", u.ID, u.Email, u.Role)
	return nil
}

func resetPassword(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ExitOnError)
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "new password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("-email and -password are required")
	}
	if err := auth.ValidatePassword(*password); err != nil {
		return err
	}
	users, repo, err := userService(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := users.ResetPassword(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Printf("password updated for %s\n", *email)
	return nil
}

func migrate(cfg *config.Config) error {
	if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
		return err
	}
	version, dirty, err := storage.MigrationVersion(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d (dirty=%v)\n", version, dirty)
	return nil
}
