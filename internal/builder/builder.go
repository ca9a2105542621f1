package builder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/futig/doc-chat/internal/api"
	corpusapi "github.com/futig/doc-chat/internal/api/corpus"
	"github.com/futig/doc-chat/internal/api/middleware"
	pageapi "github.com/futig/doc-chat/internal/api/page"
	"github.com/futig/doc-chat/internal/config"
	"github.com/futig/doc-chat/internal/extractor"
	"github.com/futig/doc-chat/internal/integration/common"
	"github.com/futig/doc-chat/internal/integration/gcs"
	"github.com/futig/doc-chat/internal/integration/vertex"
	"github.com/futig/doc-chat/internal/pkg/formatter"
	"github.com/futig/doc-chat/internal/pkg/validator"
	"github.com/futig/doc-chat/internal/repository"
	"github.com/futig/doc-chat/internal/usecase/bucket"
	"github.com/futig/doc-chat/internal/usecase/corpus"
	"github.com/futig/doc-chat/internal/usecase/upload"
	"github.com/unidoc/unioffice/common/license"
	"go.uber.org/zap"
)

// connectors groups the external service clients the use cases depend on
type connectors struct {
	storage bucket.Storage
	rag     interface {
		upload.RagConnector
		corpus.RagConnector
	}
	ocr     extractor.OCR
	closers []io.Closer
}

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
		zap.Bool("debug", cfg.Debug),
	)

	if cfg.UnidocLicenseKey != "" {
		if err := license.SetMeteredKey(cfg.UnidocLicenseKey); err != nil {
			logger.Warn("Office license rejected, docx/xlsx/pptx extraction and docx export will fail", zap.Error(err))
		}
	} else {
		logger.Warn("UNIDOC_LICENSE_API_KEY not set, office documents are not supported")
	}

	resolver := config.NewCredentialsResolver(cfg.CredentialsFile)
	logger.Info("Credentials resolved",
		zap.String("file", resolver.Path()),
		zap.Bool("exists", resolver.Exists()),
		zap.String("project_id", resolver.ProjectID()),
	)

	conns, err := setupConnectors(ctx, cfg, resolver, logger)
	if err != nil {
		return nil, err
	}

	// State shared across requests
	state := repository.NewStateStore(cfg.StateCfg)
	fileValidator := validator.NewFileValidator(cfg.FileUploadCfg)
	docExtractor := extractor.New(conns.ocr, logger)

	uploadUC := upload.NewUsecase(
		cfg.FileUploadCfg,
		cfg.RAGCfg,
		fileValidator,
		docExtractor,
		conns.rag,
		state,
		logger,
	)
	corpusUC := corpus.NewUsecase(cfg.RAGCfg, conns.rag, formatter.NewFactory(), logger)
	bucketUC := bucket.NewUsecase(cfg.StorageCfg, conns.storage, resolver, state, logger)
	logger.Info("Use cases initialized")

	pageHandler, err := pageapi.NewHandler(uploadUC, bucketUC, cfg.FileUploadCfg.MaxUploadSize, cfg.Debug, logger)
	if err != nil {
		return nil, fmt.Errorf("setup page handler: %w", err)
	}
	corpusHandler := corpusapi.NewHandler(corpusUC, cfg.Debug, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimitCfg, logger)
	router := api.SetupRouter(pageHandler, corpusHandler, limiter, logger, cfg.RequestTimeout)
	logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		// Uploads stream up to the size limit and wait for the whole import
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
		zap.Bool("mocks", cfg.EnableMocks),
	)

	return &App{
		server:  server,
		closers: conns.closers,
		logger:  logger,
	}, nil
}

func setupConnectors(ctx context.Context, cfg *config.Config, resolver *config.CredentialsResolver, logger *zap.Logger) (*connectors, error) {
	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		return &connectors{
			storage: gcs.NewMockConnector(logger),
			rag:     vertex.NewMockConnector(logger),
			ocr:     vertex.MockOCR{},
		}, nil
	}

	logger.Info("Using real connectors for external services")

	creds, err := common.DetectCredentials(resolver.Path(), resolver.Exists())
	if err != nil {
		// Pages still render; every cloud call will fail with an auth error
		logger.Warn("No Google credentials found", zap.Error(err))
	}
	httpClient := common.NewGoogleHTTPClient(cfg.HTTPClientCfg, creds, logger)

	storage, err := gcs.NewConnector(ctx, httpClient, resolver, cfg.StorageCfg.Retry, logger)
	if err != nil {
		return nil, fmt.Errorf("setup storage connector: %w", err)
	}

	rag := vertex.NewConnector(httpClient, creds, storage, cfg.RAGCfg.BlobPrefix, logger)

	projectID := resolver.ProjectID()
	if projectID == "" {
		projectID = common.ProjectFromCredentials(ctx, creds)
	}
	ocr := vertex.NewOCR(httpClient, creds, projectID, cfg.RAGCfg.Location, cfg.RAGCfg.OCRModel, logger)

	return &connectors{
		storage: storage,
		rag:     rag,
		ocr:     ocr,
		closers: []io.Closer{rag, storage},
	}, nil
}
