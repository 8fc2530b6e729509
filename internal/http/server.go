package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/booking"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/config"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/pipeline"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/services"
	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/storage"
)

const janitorInterval = 5 * time.Minute

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	pipe   *pipeline.Orchestrator
}

func NewServer(cfg config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	files, err := storage.NewFileManager(cfg.DataDir, cfg.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("init file manager: %w", err)
	}

	store, err := newRecordStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init record store: %w", err)
	}

	var extractor services.Extractor
	if cfg.OCRMode == config.OCRModeLocal {
		extractor = services.NewTesseractExtractor()
	} else {
		extractor = services.NewOCRService(cfg)
	}

	pipe := pipeline.NewOrchestrator(cfg, pipeline.Deps{
		Extractor:  extractor,
		Simplifier: services.NewSimplifyService(cfg),
		Store:      store,
		Files:      files,
	})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger())
	engine.Use(MaxBodySize(cfg.MaxUploadBytes))
	engine.Use(CORS())

	api := NewAPI(cfg, pipe, store, files, services.NewPDFService(), booking.NewCounter())
	registerRoutes(engine, api)

	return &Server{engine: engine, cfg: cfg, pipe: pipe}, nil
}

func (s *Server) Run() error {
	s.pipe.StartJanitor(context.Background(), janitorInterval)

	addr := fmt.Sprintf(":%s", s.cfg.Port)
	return s.engine.Run(addr)
}

func newRecordStore(cfg config.Config) (storage.RecordStore, error) {
	if cfg.MongoURI == "" {
		return storage.NewFileStore(cfg.DataDir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
}
