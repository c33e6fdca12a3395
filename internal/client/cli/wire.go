package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insubria-survive/survive/internal/client/calendar"
	"github.com/insubria-survive/survive/internal/client/client"
	"github.com/insubria-survive/survive/internal/client/config"
	"github.com/insubria-survive/survive/internal/client/remote"
	"github.com/insubria-survive/survive/internal/client/remote/filesource"
	"github.com/insubria-survive/survive/internal/client/remote/natssource"
	"github.com/insubria-survive/survive/internal/client/services"
	"github.com/insubria-survive/survive/internal/client/session"
	"github.com/insubria-survive/survive/internal/client/syncer"
	"github.com/insubria-survive/survive/internal/filex"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// NewApp wires the local store, the remote source chosen by c.Remote, the
// synchronizers and the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	app := newApp(c)

	logger, logCloser := logging.NewFileLogger(logging.FileOptions{
		Path:       c.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Level:      slog.LevelInfo,
	})
	app.logger = logger
	app.closers = append(app.closers, logCloser.Close)

	if err := filex.EnsureParentDir(c.DBPath); err != nil {
		app.Close()
		return nil, fmt.Errorf("error preparing database directory: %w", err)
	}

	repos, err := client.InitDatabase(ctx, c.DBPath, app.loc)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	app.closers = append(app.closers, repos.Close)

	sess := session.New()

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, sess, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, apiClient.Close)

	src, err := app.remoteSource(apiClient)
	if err != nil {
		app.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	opts := syncer.Options{
		Metadata: repos.Metadata,
		Logger:   logger,
		Metrics:  metrics.NewSync(reg),
		Workers:  c.SyncWorkers,
	}

	exams := syncer.New(syncer.ExamKind(repos.Exams, app.loc), src, opts)
	lessons := syncer.New(syncer.LessonKind(repos.Lessons, app.loc), src, opts)
	pavilions := syncer.New(syncer.PavilionKind(repos.Pavilions), src, opts)

	app.auth = services.NewAuthService(apiClient, sess, logger)
	app.prefs = services.NewPreferenceService(repos.Exams, repos.Preferences, sess, logger)
	app.timetable = services.NewTimetableService(repos.Exams, repos.Lessons, repos.Pavilions, app.loc)
	app.exporter = calendar.NewS3Exporter(calendar.S3Config{
		Region:    c.S3.Region,
		Endpoint:  c.S3.Endpoint,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
		Bucket:    c.S3.Bucket,
	}, logger)
	app.metadata = repos.Metadata
	app.gatherer = reg

	exams.OnSynced(app.prefs.OnSynced)
	app.runners = []runner{exams, lessons, pavilions}

	return app, nil
}

func (a *App) remoteSource(apiClient *client.GRPCClient) (remote.Source, error) {
	switch a.config.Remote {
	case config.RemoteGRPC, "":
		return apiClient, nil
	case config.RemoteDir:
		dir, err := filex.EnsureDir(a.config.DataDir)
		if err != nil {
			return nil, err
		}
		return filesource.New(dir, a.logger), nil
	case config.RemoteNATS:
		src, nc, err := natssource.Connect(a.config.NatsURL, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		a.closers = append(a.closers, func() error { nc.Close(); return nil })
		return src, nil
	default:
		return nil, fmt.Errorf("unknown remote %q", a.config.Remote)
	}
}
