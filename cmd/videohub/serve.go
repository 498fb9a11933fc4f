package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/videohub/internal/auth"
	"github.com/sakif/videohub/internal/config"
	"github.com/sakif/videohub/internal/media"
	"github.com/sakif/videohub/internal/metrics"
	"github.com/sakif/videohub/internal/policy"
	"github.com/sakif/videohub/internal/publisher"
	"github.com/sakif/videohub/internal/server"
	"github.com/sakif/videohub/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg)

	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	backend, closeBackend, err := newObjectStorage(ctx, cfg.Media)
	if err != nil {
		return err
	}
	defer closeBackend()

	store := media.NewStorage(backend, cfg.Media.PublicBaseURL)
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensuring bucket %s: %w", store.Bucket(), err)
	}

	google := auth.NewGoogleProvider(
		cfg.Google.ClientID,
		cfg.Google.ClientSecret,
		cfg.Google.LoginCallback,
		cfg.Google.ChannelCallback,
	)
	youtube := publisher.NewYouTube(store, logger,
		publisher.WithPrivacy(cfg.Google.UploadPrivacy),
		publisher.WithTimeout(cfg.Google.UploadTimeout),
	)

	m := metrics.New()
	evaluator := policy.NewEvaluator(db.Accounts(), db.Roles())

	deps := server.Deps{
		Identity: service.NewIdentityService(db.Users(), db.Roles(), tokens, auth.NewPasswordService(), logger),
		Accounts: service.NewAccountService(db.Accounts(), db.Roles(), db.Users(), evaluator, logger),
		Videos:   service.NewVideoService(db.Videos(), db.Accounts(), evaluator, store, m, logger),
		Reviews:  service.NewReviewService(db.Videos(), db.Accounts(), evaluator, youtube, google, m, logger),
		Tokens:   tokens,
		Google:   google,
		Metrics:  m,
		Health:   db.Ping,
	}

	srv := server.New(server.Config{
		Port:          cfg.Port,
		BaseURL:       cfg.BaseURL,
		MaxUploadSize: cfg.Media.MaxUploadSize,
	}, deps, logger)

	logger.Info("media storage ready",
		slog.String("backend", cfg.Media.Backend),
		slog.String("bucket", store.Bucket()),
	)
	return srv.Start(ctx)
}

// newObjectStorage picks the media backend named in the config. The
// returned func releases the backend's client.
func newObjectStorage(ctx context.Context, cfg config.MediaConfig) (media.ObjectStorage, func(), error) {
	switch cfg.Backend {
	case "minio":
		client, err := media.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, nil, fmt.Errorf("creating minio client: %w", err)
		}
		return client, func() {}, nil

	case "gcs":
		client, err := media.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gcs client: %w", err)
		}
		return client, func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown MEDIA_BACKEND %q (want minio or gcs)", cfg.Backend)
	}
}
