package main

import (
	"fmt"

	"github.com/andhikamw/lensdl/internal/common/config"
	"github.com/andhikamw/lensdl/internal/common/logger"
	"github.com/andhikamw/lensdl/internal/common/messaging"
	"github.com/andhikamw/lensdl/internal/common/session"
	"github.com/andhikamw/lensdl/internal/engine"
	"github.com/andhikamw/lensdl/internal/task"
	"github.com/andhikamw/lensdl/internal/web/handler"
	"github.com/andhikamw/lensdl/internal/web/websocket"
	"github.com/andhikamw/lensdl/pkg/models"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	srvCfg := cfg.GetServerConfig()
	dlCfg := cfg.GetDownloaderConfig()
	authCfg := cfg.GetAuthConfig()

	// Initialize logger
	log := logger.New(cfg)
	log.Infof("Server configuration: %+v", srvCfg)

	// Build the authenticated session and load exported cookies if present
	sess := session.New(authCfg.UserAgent, log)
	if authCfg.CookieFile != "" {
		if count, err := sess.LoadCookieFile(authCfg.CookieFile); err != nil {
			log.WithError(err).Warn("No cookie file loaded; only free videos will work")
		} else {
			log.WithField("count", count).Info("Cookies loaded")
			if !sess.HasAuthCookie() {
				log.Warn("Auth cookie missing from cookie file; paid videos may fail")
			}
		}
	}

	// Assemble the engine and apply downloader tuning
	eng := engine.FromSession(sess, log)
	if dl := eng.Downloader(); dl != nil {
		dl.FFmpegPath = dlCfg.FFmpegPath
		if dlCfg.AssumedSizeBytes > 0 {
			dl.AssumedSizeBytes = dlCfg.AssumedSizeBytes
		}
	}

	// Task event publishing is optional; without a broker URL the
	// manager simply skips it
	var msgClient messaging.Client
	if cfg.RabbitMq.URL != "" {
		client, err := messaging.NewRabbitMQClient(&cfg.RabbitMq, log)
		if err != nil {
			log.Fatalf("Failed to create RabbitMQ client: %v", err)
		}
		defer client.Close()

		if err := setupTaskEventQueue(client, &cfg.RabbitMq); err != nil {
			log.Fatalf("Failed to set up task event queue: %v", err)
		}
		msgClient = client
	}

	hub := websocket.NewHub(log)
	manager := task.NewManager(eng, hub, msgClient, cfg.RabbitMq.Exchange, log)

	// Initialize the gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	h := handler.NewHandler(dlCfg, sess, eng, manager, hub, log)
	h.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", srvCfg.Host, srvCfg.Port)
	log.Infof("Starting API server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}
}

// setupTaskEventQueue declares and binds the queue the downstream
// transcription pipeline consumes.
func setupTaskEventQueue(client messaging.Client, cfg *config.RabbitMQConfig) error {
	if err := client.DeclareQueue(cfg.TaskEventQueue); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.TaskEventQueue, err)
	}
	keys := []string{models.TaskProgressKey, models.TaskCompletedKey, models.TaskFailedKey}
	for _, key := range keys {
		if err := client.BindQueue(cfg.TaskEventQueue, cfg.Exchange, key); err != nil {
			return fmt.Errorf("failed to bind queue %s to key %s: %w", cfg.TaskEventQueue, key, err)
		}
	}
	return nil
}
