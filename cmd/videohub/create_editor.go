package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/videohub/internal/auth"
	"github.com/sakif/videohub/internal/config"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/service"
)

var createEditorFlags struct {
	email    string
	name     string
	password string
	admin    bool
}

// createEditorCmd provisions a password user from the shell. It is the
// only way to create the first admin on a deployment without Google
// sign-in.
var createEditorCmd = &cobra.Command{
	Use:   "create-editor",
	Short: "Provision a password user",
	Long: `Provision a password user. Usage:

	videohub create-editor --email ed@example.com --name "Ed" --password s3cret-pass
	videohub create-editor --email root@example.com --name Root --password ... --admin
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := createEditorFlags
		if f.email == "" || f.password == "" {
			return errors.New("--email and --password are required")
		}
		if f.name == "" {
			f.name = f.email
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		// Provision never issues a session, so no token service is needed.
		identity := service.NewIdentityService(db.Users(), db.Roles(), nil, auth.NewPasswordService(), logger)

		role := model.RoleUser
		if f.admin {
			role = model.RoleAdmin
		}

		user, err := identity.Provision(cmd.Context(), service.CreateEditorInput{
			Email:    f.email,
			Name:     f.name,
			Password: f.password,
		}, role)
		if err != nil {
			return fmt.Errorf("creating %s: %w", f.email, err)
		}

		logger.Info("user provisioned",
			slog.String("user_id", user.ID),
			slog.String("email", user.Email),
			slog.String("role", string(user.Role)),
		)
		fmt.Fprintln(cmd.OutOrStdout(), user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createEditorCmd)

	flags := createEditorCmd.Flags()
	flags.StringVar(&createEditorFlags.email, "email", "", "email address (required)")
	flags.StringVar(&createEditorFlags.name, "name", "", "display name (defaults to the email)")
	flags.StringVar(&createEditorFlags.password, "password", "", "initial password, 8 to 72 characters (required)")
	flags.BoolVar(&createEditorFlags.admin, "admin", false, "grant the admin role instead of user")
}
