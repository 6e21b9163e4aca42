package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"

	"riskscan-backend/internal/account"
	googleauth "riskscan-backend/internal/auth"
	"riskscan-backend/internal/documents"
	"riskscan-backend/internal/llm"
	openai "riskscan-backend/internal/llm/openai"
	"riskscan-backend/internal/queue"
	"riskscan-backend/internal/reports"
	"riskscan-backend/internal/shared/config"
	"riskscan-backend/internal/shared/server"
	"riskscan-backend/internal/shared/storage/db"
	"riskscan-backend/internal/shared/storage/object"
	localstore "riskscan-backend/internal/shared/storage/object/local"
	s3store "riskscan-backend/internal/shared/storage/object/s3"
	"riskscan-backend/internal/usage"
	"riskscan-backend/internal/users"
)

const (
	uploadsDefaultRegion = "us-east-1"
	uploadsDefaultPrefix = "documents/"
)

// App holds shared dependencies built once per process.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Queue            queue.Client
	UploadsPresign   *s3.PresignClient
	UploadsBucket    string
	UploadsPrefix    string
	DocumentsRepo    documents.DocumentsRepo
	ReportsRepo      reports.Repo
	UsersRepo        users.Repo
	DocumentsService *documents.Service
	UsageService     *usage.Service
	ReportsService   *reports.Service
	ReportProcessor  ReportProcessor
	AccountService   *account.Service
	UsersService     *users.Service
	DocumentsHandler *documents.Handler
	ReportHandler    *reports.Handler
	AccountHandler   *account.Handler
	UsageHandler     *usage.Handler
	UsersHandler     *users.Handler
	GoogleAuth       *googleauth.GoogleService
	Services         map[string]any
}

// ReportProcessor allows callers to override report processing for tests.
type ReportProcessor interface {
	Complete(ctx context.Context, reportID string) error
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	presign, bucket, prefix, err := buildUploadsPresign(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:         cfg,
		Router:         nil,
		DB:             sqlDB,
		Store:          store,
		Queue:          queueClient,
		UploadsPresign: presign,
		UploadsBucket:  bucket,
		UploadsPrefix:  prefix,
		Services:       map[string]any{},
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AccountHandler:  app.AccountHandler,
		ReportHandler:   app.ReportHandler,
		DocumentHandler: app.DocumentsHandler,
		UsageHandler:    app.UsageHandler,
		UserHandler:     app.UsersHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("RS_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildUploadsPresign(ctx context.Context) (*s3.PresignClient, string, string, error) {
	bucket := strings.TrimSpace(os.Getenv("UPLOADS_S3_BUCKET"))
	if bucket == "" {
		return nil, "", "", nil
	}

	region := strings.TrimSpace(os.Getenv("AWS_REGION"))
	if region == "" {
		region = uploadsDefaultRegion
	}
	prefix := strings.TrimSpace(os.Getenv("UPLOADS_S3_PREFIX"))
	if prefix == "" {
		prefix = uploadsDefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, "", "", fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return s3.NewPresignClient(client), bucket, prefix, nil
}

func buildServices(app *App) error {
	var docRepo documents.DocumentsRepo
	var reportRepo reports.Repo
	var userRepo users.Repo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		reportRepo = &reports.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		reportRepo = reports.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Store:           app.Store,
		Repo:            docRepo,
		StorageProvider: app.Config.ObjectStoreType,
	}

	var usageSvc *usage.Service
	if app.DB != nil {
		usageSvc = usage.NewPostgresService(usage.NewPGStore(app.DB))
	} else {
		usageSvc = usage.NewService()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			return err
		}
		llmClient = openaiClient
	}

	reportSvc := &reports.Service{
		Repo:            reportRepo,
		Usage:           usageSvc,
		DocRepo:         docRepo,
		Store:           app.Store,
		LLM:             llmClient,
		JobQueue:        app.Queue,
		Provider:        app.Config.LLMProvider,
		Model:           app.Config.LLMModel,
		AnalysisVersion: app.Config.AnalysisVersion,
	}

	userSvc := users.NewService(userRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.DocumentsRepo = docRepo
	app.ReportsRepo = reportRepo
	app.UsersRepo = userRepo
	app.DocumentsService = docSvc
	app.UsageService = usageSvc
	app.ReportsService = reportSvc
	app.ReportProcessor = reportSvc
	app.AccountService = account.NewService(docRepo, reportRepo)
	app.UsersService = userSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ReportHandler = reports.NewHandler(reportSvc, docRepo)
	app.AccountHandler = account.NewHandler(app.AccountService)
	app.UsageHandler = usage.NewHandler(usageSvc)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc

	if app.DocumentsHandler == nil || app.ReportHandler == nil || app.UsageHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}
