package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/contactbook/core/internal/adapters/repository"
	"github.com/contactbook/core/internal/application/services"
	"github.com/contactbook/core/internal/domain/entities"
	"github.com/contactbook/core/internal/infrastructure/config"
	"github.com/contactbook/core/internal/infrastructure/logger"
	"github.com/contactbook/core/internal/infrastructure/metrics"
	"github.com/contactbook/core/internal/ports"
)

// Set at build time with -ldflags
var (
	Version   = "dev"
	GitCommit = "development"
)

// NewRootCommand creates the contacts command. Run without a subcommand it
// dispatches a single --action request.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "contacts",
		Short: "Command-line contact book",
		Long:  `contacts keeps a small list of named records in a JSON file and reads or adds them one request at a time.`,
		Example: `  contacts --action=save --name="Alice"
  contacts --action=get --id=1
  contacts --action=get`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(cmd, v)
		},
	}

	rootCmd.Flags().String("action", "", "Action to perform (get, save)")
	rootCmd.Flags().String("id", "", "Contact id")
	rootCmd.Flags().String("name", "", "Contact name")

	rootCmd.PersistentFlags().String("file", "", "Path of the contacts JSON file (overrides CONTACTS_FILE)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag("storage.file", rootCmd.PersistentFlags().Lookup("file"))
	_ = v.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newUpdateCommand(v))
	rootCmd.AddCommand(newDeleteCommand(v))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

func newUpdateCommand(v *viper.Viper) *cobra.Command {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update an existing contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetInt("id")

			var update entities.ContactUpdate
			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				update.Name = &name
			}

			return withApp(cmd, v, func(ctx context.Context, a *app) error {
				contact, err := a.service.UpdateContact(ctx, id, update)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), contact)
			})
		},
	}

	updateCmd.Flags().Int("id", 0, "Contact id (required)")
	updateCmd.Flags().String("name", "", "New contact name")
	_ = updateCmd.MarkFlagRequired("id")

	return updateCmd
}

func newDeleteCommand(v *viper.Viper) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetInt("id")

			return withApp(cmd, v, func(ctx context.Context, a *app) error {
				return a.service.DeleteContact(ctx, id)
			})
		},
	}

	deleteCmd.Flags().Int("id", 0, "Contact id (required)")
	_ = deleteCmd.MarkFlagRequired("id")

	return deleteCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print contacts version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "contacts %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", GitCommit)
		},
	}
}

func runDispatch(cmd *cobra.Command, v *viper.Viper) error {
	action, _ := cmd.Flags().GetString("action")

	return withApp(cmd, v, func(ctx context.Context, a *app) error {
		req := ports.Request{Action: action}

		if cmd.Flags().Changed("id") {
			raw, _ := cmd.Flags().GetString("id")
			id, err := strconv.Atoi(raw)
			if err != nil {
				a.logger.Debugw("Ignoring non-numeric id", "id", raw)
			} else {
				req.Params.ID = &id
			}
		}

		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			req.Params.Name = &name
		}

		resp, err := a.service.Dispatch(ctx, req)
		if err != nil {
			return err
		}

		switch {
		case resp == nil:
			return nil
		case resp.Contact != nil:
			return printJSON(cmd.OutOrStdout(), resp.Contact)
		case resp.Contacts != nil:
			return printJSON(cmd.OutOrStdout(), resp.Contacts)
		}
		return nil
	})
}

// app holds everything one command invocation needs
type app struct {
	logger  *logger.Logger
	metrics *metrics.Recorder
	repo    *repository.ContactRepositoryImpl
	service *services.ContactService
}

func withApp(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.LoadWith(v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	textfile := ""
	if cfg.Metrics.Enabled {
		textfile = cfg.Metrics.Textfile
	}
	recorder := metrics.New(textfile)
	defer func() {
		if err := recorder.Flush(); err != nil {
			appLogger.Warnw("Failed to write metrics", "error", err)
		}
	}()

	repo := repository.NewContactRepository(
		afero.NewOsFs(),
		cfg.Storage.File,
		appLogger,
		repository.WithAtomicWrite(cfg.Storage.AtomicWrite),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := repo.Load(ctx); err != nil {
		return fmt.Errorf("failed to load contacts from %s: %w", repo.Path(), err)
	}

	a := &app{
		logger:  appLogger,
		metrics: recorder,
		repo:    repo,
		service: services.NewContactService(repo, recorder, appLogger),
	}
	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
