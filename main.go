package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/competitor-scanner/app/config"
	"github.com/competitor-scanner/app/controllers"
	"github.com/competitor-scanner/app/services"
	"github.com/competitor-scanner/internal/extractor"
	"github.com/competitor-scanner/internal/scanner"
	"github.com/competitor-scanner/routes"
)

func main() {
	// 1. Load configuration
	loadConfig()

	// 2. Initialize logger
	logger := initLogger()
	defer logger.Sync()

	logger.Info("Starting Competitor Scanner Service")

	// 3. Load scanner configuration
	if err := config.Load(viper.GetString("scanner.config")); err != nil {
		logger.Fatal("Failed to load scanner config", zap.Error(err))
	}
	if len(config.C.Scanners) == 0 {
		logger.Fatal("No scanners configured", zap.String("path", viper.GetString("scanner.config")))
	}

	// 4. Entity extraction backend
	ex := buildExtractor(logger)

	// 5. Optional competitor catalog (Meilisearch)
	var catalogService *services.CatalogService
	if config.C.Catalog.Enabled {
		var err error
		catalogService, err = services.NewCatalogService(services.CatalogConfig{
			Host:      viper.GetString("meilisearch.url"),
			APIKey:    viper.GetString("meilisearch.master_key"),
			IndexName: viper.GetString("meilisearch.index"),
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize catalog", zap.Error(err))
		}
		if _, err := catalogService.EnsureIndex(); err != nil {
			logger.Warn("Failed to push catalog index settings", zap.Error(err))
		}
	}

	// 6. Scanner pipeline
	builder := func(ctx context.Context) ([]*scanner.Scanner, error) {
		return buildScanners(catalogService, ex, logger)
	}
	scanners, err := builder(context.Background())
	if err != nil {
		logger.Fatal("Failed to build scanners", zap.Error(err))
	}

	// 7. Cache backend
	cacheTTL := time.Duration(viper.GetInt("cache.ttl_seconds")) * time.Second

	var cacheService services.ICacheService
	switch cacheType := viper.GetString("cache.type"); cacheType {
	case "none":
		logger.Info("Cache disabled")
	case "memory":
		cacheService = services.NewCacheService(viper.GetInt("cache.max_entries"), cacheTTL)
	case "redis":
		redisCache, err := services.NewRedisCacheService(viper.GetString("redis.url"), logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis cache", zap.Error(err))
		}
		redisCache.SetTTL(cacheTTL)
		cacheService = redisCache
	case "mongo":
		mongoDB := initMongoDB(logger)
		defer func() {
			if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
				logger.Error("Error disconnecting MongoDB", zap.Error(err))
			}
		}()

		mongoCache, err := services.NewMongoCacheService(mongoDB, viper.GetInt("cache.l1_size"), logger)
		if err != nil {
			logger.Fatal("Failed to initialize MongoDB cache", zap.Error(err))
		}
		if err := mongoCache.WarmUp(context.Background(), viper.GetInt("cache.l1_size")/2); err != nil {
			logger.Warn("Failed to warm up cache", zap.Error(err))
		}
		cacheService = mongoCache
	case "hybrid":
		memoryCache := services.NewCacheService(viper.GetInt("cache.max_entries"), cacheTTL)
		redisCache, err := services.NewRedisCacheService(viper.GetString("redis.url"), logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis cache", zap.Error(err))
		}
		redisCache.SetTTL(cacheTTL)
		cacheService = services.NewHybridCacheService(memoryCache, redisCache, logger)
	default:
		logger.Fatal("Unknown cache type", zap.String("type", cacheType))
	}
	if cacheService != nil {
		defer cacheService.Close()
	}

	// 8. Audit log for flagged scans
	auditService, err := services.NewAuditService(viper.GetString("audit.db_path"), logger)
	if err != nil {
		logger.Fatal("Failed to open audit log", zap.Error(err))
	}
	defer auditService.Close()

	// 9. Scan service
	scanService := services.NewScanService(services.ScanServiceConfig{
		Timeout:        config.C.App.ScanTimeout(),
		MaxConcurrency: config.C.App.MaxConcurrency,
		FailFast:       config.C.App.FailFast,
	}, scanners, builder, cacheService, auditService, logger)

	// 10. Controllers
	scanController := controllers.NewScanController(scanService, cacheService, auditService, logger)
	adminController := controllers.NewAdminController(scanService, cacheService, auditService, catalogService, logger)

	// 11. Gin router
	if viper.GetString("app.env") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 12. Routes and middleware
	routes.SetupAllRoutes(router, scanController, adminController, logger)

	// 13. Start server
	port := viper.GetString("app.port")
	logger.Info("Competitor Scanner Service starting",
		zap.String("port", port),
		zap.Int("scanners", len(scanners)))

	if err := router.Run(":" + port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// loadConfig reads server-level settings from config/app.yaml and the
// environment. Scanner semantics live in config/scanner.yaml, loaded
// separately by config.Load.
func loadConfig() {
	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("scanner.config", "config/scanner.yaml")
	viper.SetDefault("cache.type", "memory")
	viper.SetDefault("cache.ttl_seconds", 3600)
	viper.SetDefault("cache.max_entries", 10000)
	viper.SetDefault("cache.l1_size", 10000)
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("mongo.url", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "competitor_scanner")
	viper.SetDefault("meilisearch.url", "http://localhost:7700")
	viper.SetDefault("meilisearch.master_key", "")
	viper.SetDefault("meilisearch.index", "competitors")
	viper.SetDefault("audit.db_path", "")
	viper.SetDefault("extractor.backend", "prose")
	viper.SetDefault("extractor.model_dir", "models/ner")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Cannot read config file: %v", err)
	}
}

// initLogger builds the structured logger for the configured environment.
func initLogger() *zap.Logger {
	var cfg zap.Config
	if viper.GetString("app.env") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}

	return logger
}

// buildExtractor picks the NER backend. prose needs no model files; onnx
// loads the exported model lazily on first scan.
func buildExtractor(logger *zap.Logger) extractor.Extractor {
	backend := viper.GetString("extractor.backend")
	switch backend {
	case "prose":
		return extractor.NewProseExtractor(config.C.Extractor.Labels, logger)
	case "onnx":
		return extractor.NewONNXExtractor(extractor.ONNXConfig{
			ModelDir: viper.GetString("extractor.model_dir"),
			MaxBytes: config.C.Extractor.MaxBytes,
			MinScore: config.C.Extractor.MinScore,
			Labels:   config.C.Extractor.Labels,
		}, logger)
	default:
		logger.Fatal("Unknown extractor backend", zap.String("backend", backend))
		return nil
	}
}

// buildScanners assembles the pipeline from config.C.Scanners, merging
// catalog group names into competitor lists when a catalog is attached.
func buildScanners(catalog *services.CatalogService, ex extractor.Extractor, logger *zap.Logger) ([]*scanner.Scanner, error) {
	scanners := make([]*scanner.Scanner, 0, len(config.C.Scanners))

	for _, sc := range config.C.Scanners {
		cfg := sc.Config

		if sc.CatalogGroup != "" && catalog != nil {
			names, err := catalog.LoadGroup(sc.CatalogGroup)
			if err != nil {
				return nil, err
			}
			cfg.Competitors = append(append([]string{}, cfg.Competitors...), names...)
		}

		s, err := scanner.New(cfg, ex, logger)
		if err != nil {
			return nil, err
		}
		scanners = append(scanners, s)
	}

	return scanners, nil
}

// initMongoDB connects and pings MongoDB for the mongo cache backend.
func initMongoDB(logger *zap.Logger) *mongo.Database {
	mongoURL := viper.GetString("mongo.url")

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURL))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("Failed to ping MongoDB", zap.Error(err))
	}

	dbName := viper.GetString("mongo.database")
	logger.Info("Connected to MongoDB", zap.String("database", dbName))

	return client.Database(dbName)
}
