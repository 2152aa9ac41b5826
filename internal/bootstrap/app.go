package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/advisorapi"
	"resume-builder/internal/bridge"
	"resume-builder/internal/devapi"
	"resume-builder/internal/documents"
	"resume-builder/internal/markers"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/storage/object"
	localstore "resume-builder/internal/shared/storage/object/local"
	s3store "resume-builder/internal/shared/storage/object/s3"
	"resume-builder/internal/uploadsession"
)

const devAPIConcurrency = 4

// App holds shared dependencies and the router built from them.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	Markers  markers.Store
	Registry *bridge.Registry
	Store    object.ObjectStore
	DevAPI   *devapi.Service
}

// BuildBridge prepares the session bridge: marker store, per-identity advisor
// clients and the controller registry.
func BuildBridge(ctx context.Context, cfg config.Config) (*App, error) {
	cfg = withDefaults(cfg)

	store, err := markers.Open(ctx, cfg, db.DefaultServerOptions())
	if err != nil {
		if !isDevLike(cfg.Env) {
			return nil, err
		}
		log.Printf("bootstrap: marker store unavailable; using memory: %v", err)
		store = markers.NewMemoryStore()
	}

	base, err := advisorapi.NewClient(advisorapi.Options{
		BaseURL: cfg.AdvisorAPIURL,
		Token:   cfg.AdvisorAPIToken,
		Timeout: cfg.AdvisorAPITimeout,
	})
	if err != nil {
		return nil, err
	}

	registry := bridge.NewRegistry(bridge.Options{
		Markers: store,
		Clients: clientFactory(cfg, base),
		IdleTTL: cfg.SessionIdleTTL,
		ControllerOptions: []uploadsession.Option{
			uploadsession.WithPollInterval(cfg.PollInterval),
			uploadsession.WithMaxPollFailures(cfg.PollMaxFailures),
			uploadsession.WithMaxUploadBytes(cfg.MaxUploadBytes),
			uploadsession.WithRequestTimeout(cfg.AdvisorAPITimeout),
		},
	})

	app := &App{
		Config:   cfg,
		Markers:  store,
		Registry: registry,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Sessions: bridge.NewHandler(registry, cfg.MaxUploadBytes),
	})
	return app, nil
}

// clientFactory forwards the caller's own credentials when present and
// otherwise falls back to the configured service token.
func clientFactory(cfg config.Config, base *advisorapi.Client) bridge.ClientFactory {
	return func(id bridge.Identity) (uploadsession.API, error) {
		if id.Token != "" {
			return advisorapi.NewClient(advisorapi.Options{
				BaseURL: cfg.AdvisorAPIURL,
				Token:   id.Token,
				Timeout: cfg.AdvisorAPITimeout,
			})
		}
		if id.GuestID != "" {
			return base.ForGuest(id.GuestID), nil
		}
		return nil, errors.New("identity has neither token nor guest id")
	}
}

// BuildDevAPI prepares the development advisor backend.
func BuildDevAPI(ctx context.Context, cfg config.Config) (*App, error) {
	cfg = withDefaults(cfg)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc := devapi.NewService(store, documents.NewMemoryRepo(), devAPIConcurrency)

	app := &App{
		Config: cfg,
		Store:  store,
		DevAPI: svc,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		DevAPI: devapi.NewHandler(svc, cfg.DevAPIPollWindow, cfg.MaxUploadBytes),
	})
	return app, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func withDefaults(cfg config.Config) config.Config {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	return cfg
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
