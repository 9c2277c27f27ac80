package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/semmidev/argus/internal/adapter/compressor"
	"github.com/semmidev/argus/internal/adapter/database"
	"github.com/semmidev/argus/internal/adapter/notifier"
	"github.com/semmidev/argus/internal/adapter/paramstore"
	"github.com/semmidev/argus/internal/adapter/snapshot"
	"github.com/semmidev/argus/internal/adapter/storage"
	"github.com/semmidev/argus/internal/adapter/transfer"
	"github.com/semmidev/argus/internal/config"
	"github.com/semmidev/argus/internal/domain"
	"github.com/semmidev/argus/internal/infrastructure/joblog"
	"github.com/semmidev/argus/internal/infrastructure/logger"
	"github.com/semmidev/argus/internal/infrastructure/scheduler"
	"github.com/semmidev/argus/internal/lockguard"
	"github.com/semmidev/argus/internal/usecase"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

// jobRunner is what RunOnce drives once setup succeeded.
type jobRunner interface {
	Run(ctx context.Context) (domain.JobResult, error)
}

type App struct {
	config    *config.Config
	logger    *logger.Logger
	scheduler *scheduler.Scheduler
	notify    []namedNotifier

	// buildJob resolves secrets and assembles the runner. A field so
	// the job construction can be swapped out wholesale.
	buildJob func(ctx context.Context, jlog *joblog.Log) (jobRunner, error)
}

type namedNotifier struct {
	name string
	n    domain.Notifier
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s (%s job)", cfg.App.Name, cfg.Job.Kind)

	notifiers, err := initializeNotifiers(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:    cfg,
		logger:    log,
		scheduler: scheduler.New(),
		notify:    notifiers,
	}
	a.buildJob = a.newJob
	return a, nil
}

func initializeNotifiers(cfg *config.Config, log *logger.Logger) ([]namedNotifier, error) {
	var notifiers []namedNotifier

	for _, n := range cfg.GetEnabledNotifiers() {
		switch n.Type {
		case "mail":
			notifiers = append(notifiers, namedNotifier{
				name: "mail",
				n:    notifier.NewMail(n.Host, n.Port, n.From, n.To),
			})
			log.Infof("✓ Mail notification enabled (to: %s)", n.To)

		case "telegram":
			tg, err := notifier.NewTelegram(n.BotToken, n.ChatID)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize telegram notifier: %w", err)
			}
			notifiers = append(notifiers, namedNotifier{name: "telegram", n: tg})
			log.Infof("✓ Telegram notification enabled")
		}
	}

	if len(notifiers) == 0 {
		log.Warnf("No notifiers configured; failures will only reach the log")
	}

	return notifiers, nil
}

// RunOnce executes one backup job end to end and returns its exit code.
// Preflight and credential failures notify the operator before any lock
// exists; everything after the lock goes through the runner's cleanup.
func (a *App) RunOnce(ctx context.Context) int {
	jlog, err := joblog.New(os.TempDir(), a.logger)
	if err != nil {
		a.logger.Errorf("Failed to create job log: %v", err)
		return ExitFailure
	}
	defer func() {
		if err := jlog.Close(); err != nil {
			a.logger.Errorf("Failed to discard job log: %v", err)
		}
	}()

	jlog.Infof("Starting %s job", a.config.Job.Kind)

	if errs := a.preflight(); len(errs) > 0 {
		for _, err := range errs {
			jlog.Errorf("Preflight: %v", err)
		}
		a.notifyFailure(ctx, jlog)
		return ExitFailure
	}

	job, err := a.buildJob(ctx, jlog)
	if err != nil {
		a.notifyFailure(ctx, jlog)
		return ExitFailure
	}

	result, err := job.Run(ctx)
	if err != nil {
		a.notifyFailure(ctx, jlog)
		return ExitFailure
	}
	if !result.OK() {
		a.notifyFailure(ctx, jlog)
		return ExitFailure
	}

	return ExitOK
}

// newJob is the production job construction: resolve the secrets, then
// wire the pipelines for the configured kind. Every failure is written
// to the job log before returning.
func (a *App) newJob(ctx context.Context, jlog *joblog.Log) (jobRunner, error) {
	creds, bucket, ok := a.resolveSecrets(ctx, jlog)
	if !ok {
		return nil, fmt.Errorf("secret resolution failed")
	}

	runner, err := a.buildRunner(ctx, jlog, creds, bucket)
	if err != nil {
		jlog.Errorf("Job setup failed: %v", err)
		return nil, err
	}
	return runner, nil
}

// preflight confirms the external tools this job will shell out to are
// actually on the path, before anything destructive or locked happens.
func (a *App) preflight() []error {
	var tools []string
	switch domain.JobKind(a.config.Job.Kind) {
	case domain.JobFiles:
		tools = []string{
			a.config.Sync.Binary,
			a.config.Snapshot.MountBinary,
			a.config.Snapshot.UnmountBinary,
		}
	case domain.JobDatabase:
		tools = []string{"mysql", "mysqldump"}
	}

	var errs []error
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			errs = append(errs, fmt.Errorf("required tool %q not found: %w", tool, err))
		}
	}
	return errs
}

// resolveSecrets fetches the application key and bucket name. Both
// fetches are attempted so the operator sees every problem at once.
func (a *App) resolveSecrets(ctx context.Context, jlog *joblog.Log) (domain.CredentialBundle, domain.BucketTarget, bool) {
	store, err := paramstore.NewSSM(ctx, a.config.Secrets.Region)
	if err != nil {
		jlog.Errorf("Parameter store unavailable: %v", err)
		return domain.CredentialBundle{}, domain.BucketTarget{}, false
	}

	resolver := paramstore.NewResolver(store,
		a.config.Secrets.KeyParameter, a.config.Secrets.BucketParameter)

	creds, credErr := resolver.Resolve(ctx)
	bucket, bucketErr := resolver.ResolveBucket(ctx)

	if credErr != nil {
		jlog.Errorf("Credential resolution failed: %v", credErr)
	}
	if bucketErr != nil {
		jlog.Errorf("Bucket resolution failed: %v", bucketErr)
	}
	if credErr != nil || bucketErr != nil {
		return domain.CredentialBundle{}, domain.BucketTarget{}, false
	}

	jlog.Infof("Resolved credentials and bucket %s", bucket.BucketName)
	return creds, bucket, true
}

func (a *App) buildRunner(
	ctx context.Context,
	jlog *joblog.Log,
	creds domain.CredentialBundle,
	bucket domain.BucketTarget,
) (*usecase.Runner, error) {
	cfg := a.config
	comp := compressor.NewGzip()

	runner := &usecase.Runner{
		Kind: domain.JobKind(cfg.Job.Kind),
		Log:  jlog,
		Acquire: func() (func() error, error) {
			lock, err := lockguard.Acquire(cfg.App.LockPath)
			if err != nil {
				return nil, err
			}
			return lock.Release, nil
		},
	}

	switch runner.Kind {
	case domain.JobFiles:
		bucketStore, err := storage.NewS3(ctx, creds, cfg.Secrets.Region, bucket, cfg.Archive.RemotePrefix)
		if err != nil {
			return nil, err
		}

		runner.Snapshots = snapshot.NewLocator(
			bucketStore,
			cfg.Snapshot.Marker,
			cfg.Snapshot.MountPoint,
			cfg.Snapshot.Sentinel,
			cfg.Snapshot.MountBinary,
			cfg.Snapshot.UnmountBinary,
		)

		runner.Sync = usecase.NewSyncPipeline(
			transfer.NewCLI(cfg.Sync.Binary, creds),
			domain.SyncSpec{
				Source:      cfg.Sync.Source,
				Destination: cfg.Sync.Destination,
				Threads:     cfg.Sync.Threads,
				KeepDays:    cfg.Sync.KeepDays,
			},
			jlog,
		)

		if cfg.Archive.Enabled {
			targets, err := a.initializeArchiveTargets(ctx, bucketStore)
			if err != nil {
				return nil, err
			}
			day, err := cfg.ArchiveWeekday()
			if err != nil {
				return nil, err
			}
			runner.Archive = usecase.NewArchivePipeline(
				cfg.Archive.UnitRoot, cfg.Archive.Exclude, targets, comp,
				cfg.Archive.RetentionDays, jlog)
			runner.ArchiveEnabled = true
			runner.ArchiveDay = day
		}

	case domain.JobDatabase:
		dumpDir, err := storage.NewDumpDir(cfg.Database.DumpDir)
		if err != nil {
			return nil, err
		}
		db := database.NewMySQL(cfg.Database.Host, cfg.Database.Port, cfg.Database.DefaultsFile)
		runner.Dump = usecase.NewDumpPipeline(
			db, dumpDir, comp, cfg.Database.RetentionDays, jlog)
	}

	return runner, nil
}

// initializeArchiveTargets builds the upload fan-out: the bucket itself
// plus any extra configured targets.
func (a *App) initializeArchiveTargets(ctx context.Context, bucketStore *storage.S3Storage) ([]usecase.UploadTarget, error) {
	targets := []usecase.UploadTarget{{Name: "s3", Storage: bucketStore}}

	for _, t := range a.config.GetEnabledTargets() {
		switch t.Type {
		case "gdrive":
			gd, err := storage.NewGDrive(ctx, t.CredentialsFile, t.FolderID)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize gdrive target: %w", err)
			}
			targets = append(targets, usecase.UploadTarget{Name: "gdrive", Storage: gd})
		case "s3":
			// The bucket target is always present; nothing extra to build.
		default:
			a.logger.Warnf("Unknown archive target type: %s", t.Type)
		}
	}

	return targets, nil
}

// notifyFailure sends the accumulated job log to every operator channel.
// It runs at most once per job and must work with nothing but the
// static configuration behind it.
func (a *App) notifyFailure(ctx context.Context, jlog *joblog.Log) {
	hostname, _ := os.Hostname()
	subject := fmt.Sprintf("%s: %s backup FAILED on %s",
		a.config.App.Name, a.config.Job.Kind, hostname)
	body := jlog.Drain()

	for _, target := range a.notify {
		if err := target.n.Notify(ctx, subject, body); err != nil {
			a.logger.Errorf("Failed to notify via %s: %v", target.name, err)
			continue
		}
		a.logger.Infof("Failure report sent via %s", target.name)
	}
}

// Run schedules the configured job and blocks until the context ends.
func (a *App) Run(ctx context.Context) error {
	if a.config.Job.Schedule == "" {
		return fmt.Errorf("job.schedule is required when not running with -once")
	}

	if err := a.scheduler.AddJob(a.config.Job.Schedule, func(ctx context.Context) error {
		a.logger.Infof("=== Triggered scheduled %s job ===", a.config.Job.Kind)
		a.RunOnce(ctx)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started (%s)", a.config.Job.Schedule)

	<-ctx.Done()
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.scheduler.Stop()
	a.logger.Close()
}
