package daemon

import (
	"context"
	"time"

	"github.com/matheus3301/vtexter/internal/api"
	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/config"
	"github.com/matheus3301/vtexter/internal/files"
	"github.com/matheus3301/vtexter/internal/identity"
	"github.com/matheus3301/vtexter/internal/lock"
	"github.com/matheus3301/vtexter/internal/logging"
	"github.com/matheus3301/vtexter/internal/mirror"
	"github.com/matheus3301/vtexter/internal/outbox"
	"github.com/matheus3301/vtexter/internal/remote"
	"github.com/matheus3301/vtexter/internal/repository"
	"github.com/matheus3301/vtexter/internal/session"
	"github.com/matheus3301/vtexter/internal/status"
	"github.com/matheus3301/vtexter/internal/store"
	"github.com/matheus3301/vtexter/internal/view"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	Config      config.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideFiles,
			provideIdentity,
			provideDirectory,
			provideRepository,
			provideMirror,
			providePusher,
			provideTyping,
			provideSessionService,
			provideChatService,
			provideMessageService,
			provideContactService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, p.Config.Log.Level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so that the database is never opened by a
// second daemon of the same session.
func provideStore(p Params, logger *zap.Logger, _ *lock.Lock) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideFiles(p Params, logger *zap.Logger) *files.Store {
	ffmpeg, ffprobe := p.Config.Media.FFmpeg, p.Config.Media.FFprobe
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	probe := files.NewFFmpeg(ffmpeg, ffprobe)
	if probe == nil {
		logger.Info("ffmpeg not found, video thumbnails and durations disabled")
	}
	return files.New(session.FilesDir(p.SessionName), probe, logger)
}

func provideIdentity() *identity.Holder {
	return &identity.Holder{}
}

func provideDirectory(p Params, logger *zap.Logger) (remote.Directory, error) {
	if p.Config.Remote.URL == "" {
		logger.Info("no remote configured, using in-process directory")
		return remote.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dir, err := remote.DialNATS(ctx, remote.NATSConfig{
		URL:    p.Config.Remote.URL,
		Bucket: p.Config.Remote.Bucket,
		Name:   "vtexterd/" + p.SessionName,
	}, logger)
	if err != nil {
		return nil, err
	}
	return dir, nil
}

func provideRepository(db *store.DB, fs *files.Store, b *bus.Bus, ident *identity.Holder, logger *zap.Logger) *repository.Repository {
	return repository.New(db, fs, b, ident, logger)
}

func provideMirror(repo *repository.Repository, dir remote.Directory, m *status.Machine, b *bus.Bus, logger *zap.Logger) *mirror.Mirror {
	return mirror.New(repo, dir, m, b, logger)
}

func providePusher(repo *repository.Repository, dir remote.Directory, b *bus.Bus, logger *zap.Logger) *outbox.Pusher {
	return outbox.NewPusher(repo, dir, b, logger)
}

func provideTyping(b *bus.Bus) *view.Typing {
	return view.NewTyping(b)
}

func provideSessionService(p Params, m *status.Machine, repo *repository.Repository, b *bus.Bus) *api.SessionService {
	backend := "memory"
	if p.Config.Remote.URL != "" {
		backend = p.Config.Remote.URL
	}
	return api.NewSessionService(p.SessionName, backend, m, repo, b)
}

func provideChatService(repo *repository.Repository, typing *view.Typing, b *bus.Bus) *api.ChatService {
	return api.NewChatService(repo, typing, b)
}

func provideMessageService(repo *repository.Repository, typing *view.Typing, b *bus.Bus, logger *zap.Logger) *api.MessageService {
	return api.NewMessageService(repo, typing, b, logger)
}

func provideContactService(repo *repository.Repository) *api.ContactService {
	return api.NewContactService(repo)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, dir remote.Directory, repo *repository.Repository, mir *mirror.Mirror, pusher *outbox.Pusher, machine *status.Machine, logger *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			restored, err := repo.RestoreIdentity(ctx)
			if err != nil {
				_ = machine.Transition(status.Error)
				return err
			}
			if restored {
				me, _ := repo.CurrentUser()
				logger.Info("identity restored", zap.String("user_id", me.UserID))
			} else {
				logger.Info("no identity stored, sign in required")
			}

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			pusher.Start(runCtx)
			// Moves the machine to CONNECTING or SIGNED_OUT and keeps
			// following sign-in changes.
			mir.Follow(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			mir.Stop()
			pusher.Stop()
			srv.Stop(ctx)
			if err := dir.Close(); err != nil {
				logger.Warn("error closing directory", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
