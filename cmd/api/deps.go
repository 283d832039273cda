package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
	"certlink/internal/domain/client"
	"certlink/internal/domain/operator"
	"certlink/internal/domain/workspace"
	"certlink/internal/infrastructure/rabbitmq"
	"certlink/internal/infrastructure/registrar"
	"certlink/internal/infrastructure/sqlstore"
	httphandlers "certlink/internal/interfaces/http"
	"certlink/internal/shared/auth"
	"certlink/internal/shared/config"
	"certlink/internal/shared/fixtures"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB        *sqlstore.DB
	Publisher *rabbitmq.Publisher

	// Handlers
	AuthHandler      *httphandlers.AuthHandler
	ClientHandler    *httphandlers.ClientHandler
	WorkspaceHandler *httphandlers.WorkspaceHandler

	// Auth
	JWT     *auth.JWT
	Domains *auth.DomainAllowList

	// Services (for the scheduler job provider)
	ClientService      *client.Service
	CertificateService *certificate.Service
	Events             workspace.EventPublisher
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	db, err := sqlstore.Open(cfg.Storage.Driver, cfg.Storage.DSN())
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", db.Driver()).Msg("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Repositories
	clientRepo := sqlstore.NewClientRepository(db)
	certificateRepo := sqlstore.NewCertificateRepository(db)
	accountRepo := sqlstore.NewAccountRepository(db)
	operatorRepo := sqlstore.NewOperatorRepository(db)

	// Registration backend
	var reg certificate.Registrar = registrar.Stub{}
	if cfg.Registrar.URL != "" {
		reg = registrar.NewClient(cfg.Registrar.URL, cfg.Registrar.APIKey, cfg.Registrar.Timeout)
		log.Info().Str("url", cfg.Registrar.URL).Msg("Using remote certificate registrar")
	} else {
		log.Warn().Msg("REGISTRAR_URL not set, certificates are accepted by the stub registrar")
	}

	// Auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)
	domains := auth.NewDomainAllowList(cfg.Auth.AllowedDomains)

	// Domain services
	clientService := client.NewService(clientRepo)
	certificateService := certificate.NewService(certificateRepo, reg, certificate.Defaults{
		Issuer:   cfg.Registrar.DefaultIssuer,
		Validity: cfg.Registrar.CertificateValidity(),
	})
	accountService := account.NewService(accountRepo)
	operatorService := operator.NewService(operatorRepo, auth.Bcrypt{}, domains)

	if cfg.Storage.SeedOnStartup {
		set, err := fixtures.Load(cfg.Storage.SeedFile)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := fixtures.Seed(ctx, set, fixtures.Stores{
			Clients:      clientRepo,
			Certificates: certificateRepo,
			Accounts:     accountService,
			Operators:    operatorService,
		}); err != nil {
			db.Close()
			return nil, err
		}
	}

	// Event delivery
	deps := &Dependencies{DB: db}
	var events workspace.EventPublisher = workspace.LogPublisher{}
	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.Dial(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			db.Close()
			return nil, err
		}
		deps.Publisher = pub
		events = pub
	}

	policy, err := workspace.ParseLinkPolicy(cfg.Linking.Policy)
	if err != nil {
		deps.Close()
		return nil, err
	}
	workspaces := workspace.NewService(clientService, certificateService, accountService, workspace.Options{
		Policy:        policy,
		UploadTimeout: cfg.Registrar.Timeout,
		Publisher:     events,
	})
	log.Info().
		Str("link_policy", string(workspaces.Policy())).
		Strs("allowed_domains", domains.Domains()).
		Msg("Workspace service ready")

	deps.AuthHandler = httphandlers.NewAuthHandler(operatorService, jwt)
	deps.ClientHandler = httphandlers.NewClientHandler(clientService)
	deps.WorkspaceHandler = httphandlers.NewWorkspaceHandler(workspaces)
	deps.JWT = jwt
	deps.Domains = domains
	deps.ClientService = clientService
	deps.CertificateService = certificateService
	deps.Events = events

	return deps, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		d.Publisher.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
