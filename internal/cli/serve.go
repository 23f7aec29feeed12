package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/assigny/internal/config"
	"github.com/harun/assigny/internal/logger"
	"github.com/harun/assigny/internal/server"
	"github.com/harun/assigny/pkg/agent"
	"github.com/harun/assigny/pkg/digest"
	"github.com/harun/assigny/pkg/notify"
	"github.com/harun/assigny/pkg/scheduling"
	"github.com/harun/assigny/pkg/session"
	"github.com/harun/assigny/pkg/toolbackend"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Assigny agent server",
	Long: `Run the Assigny agent server in the foreground.
The server exposes POST /agent/chat and, if configured, posts a daily
appointment digest to Slack.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return err
	}
	defer lg.Close()
	zl := lg.GetZerolog()

	store, err := scheduling.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if cfg.Database.Seed {
		if err := store.Seed(ctx); err != nil {
			return err
		}
	}

	notifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		return err
	}

	registry := toolbackend.NewRegistry(time.Duration(cfg.Server.TimeoutSeconds) * time.Second)
	if err := scheduling.NewToolset(store, notifier, nil).Register(registry); err != nil {
		return err
	}

	history, err := session.NewFileStore(cfg.Sessions.Dir)
	if err != nil {
		return err
	}

	provider, err := agent.NewProvider(cfg.AI.Provider, cfg.AI.APIKey)
	if err != nil {
		return err
	}
	if provider == nil {
		zl.Warn().Msg("No AI API key configured, the assistant will answer with a fixed apology")
	}

	engine, err := agent.NewEngine(agent.EngineConfig{
		Connector:   registry,
		Provider:    provider,
		History:     history,
		Logger:      zl.With().Str("component", "engine").Logger(),
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	})
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Options{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		RequestTimeout:     time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}, engine, zl.With().Str("component", "server").Logger())
	if err != nil {
		return err
	}

	var digestSvc *digest.Service
	if cfg.Digest.Enabled {
		digestSvc, err = digest.NewService(registry, digest.Options{
			Schedule: cfg.Digest.Schedule,
			Channel:  cfg.Digest.Channel,
		}, zl.With().Str("component", "digest").Logger())
		if err != nil {
			return err
		}
		if err := digestSvc.Start(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if digestSvc != nil {
			digestSvc.Stop()
		}
		return err
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	if digestSvc != nil {
		digestSvc.Stop()
	}
	return srv.Stop()
}

// buildNotifier wires whichever outbound channels are configured. Missing
// credentials leave the corresponding channel nil, which disables it.
func buildNotifier(ctx context.Context, cfg *config.Config) (*notify.Notifier, error) {
	n := &notify.Notifier{}

	if cfg.Slack.BotToken != "" {
		slack, err := notify.NewSlackClient(cfg.Slack.BotToken, cfg.Slack.Channel)
		if err != nil {
			return nil, err
		}
		n.Slack = slack
	}

	if cfg.SMTP.Host != "" {
		mailer, err := notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		if err != nil {
			return nil, err
		}
		n.Mail = mailer
	}

	if cfg.Calendar.ClientID != "" {
		cal, err := notify.NewCalendarClient(ctx, notify.CalendarConfig{
			ClientID:     cfg.Calendar.ClientID,
			ClientSecret: cfg.Calendar.ClientSecret,
			RefreshToken: cfg.Calendar.RefreshToken,
			CalendarID:   cfg.Calendar.CalendarID,
		})
		if err != nil {
			return nil, err
		}
		n.Calendar = cal
	}

	return n, nil
}
