package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/cubik-ai/cubik-bot/internal/config"
	"github.com/cubik-ai/cubik-bot/internal/handlers"
	"github.com/cubik-ai/cubik-bot/internal/i18n"
	"github.com/cubik-ai/cubik-bot/internal/middleware"
	"github.com/cubik-ai/cubik-bot/internal/services/ai"
	"github.com/cubik-ai/cubik-bot/internal/services/cache"
	"github.com/cubik-ai/cubik-bot/internal/services/history"
	"github.com/cubik-ai/cubik-bot/internal/session"
	"github.com/cubik-ai/cubik-bot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting Cubik bot...")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}
	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := middleware.NewMetrics()

	historyManager, err := history.NewManager(&cfg.History, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize history storage")
	}

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}
	backend := ai.NewClient(&cfg.Model, metrics, log)
	responseCache := cache.NewCache(&cfg.Cache, log)
	sender := middleware.NewSender(bot, cfg.Bot.SendRate, cfg.Bot.SendBurst, log)

	store := session.NewStore()
	orch := session.NewOrchestrator(session.Options{
		Store:        store,
		Rate:         session.NewRateLimiter(cfg.Limits.RequestsPerMinute, cfg.Limits.MinuteWindow, session.SystemClock),
		Quota:        session.NewQuotaTracker(cfg.Limits.RequestsPerWeek, cfg.Limits.WeekWindow, session.SystemClock),
		Documents:    session.NewDocumentContext(cfg.Document.MaxChars, cfg.Document.FragmentChars),
		History:      historyManager,
		Backend:      backend,
		Cache:        responseCache,
		Clock:        session.SystemClock,
		Logger:       log,
		IsGold:       cfg.Limits.IsGold,
		SystemPrompt: cfg.Model.SystemPrompt,
		ModelName:    cfg.Model.Name,
		BufferCap:    cfg.History.MaxBufferMessages,
	})

	// Seed the volatile rolling buffers from the durable log; a failure
	// just means starting with empty memory.
	if err := orch.LoadHistory(ctx); err != nil {
		log.WithError(err).Warn("Continuing without persisted history")
	}

	commandHandler := handlers.NewCommandHandler(cfg, sender, orch, metrics, localizer, log)
	messageHandler := handlers.NewMessageHandler(cfg, sender, orch, metrics, localizer, log)
	documentHandler := handlers.NewDocumentHandler(sender, orch, metrics, localizer, log)

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")
			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	var updates tgbotapi.UpdatesChannel
	if cfg.Bot.Webhook.Enabled {
		webhookURL := fmt.Sprintf("%s/%s", cfg.Bot.Webhook.URL, bot.Token)
		webhook, err := tgbotapi.NewWebhook(webhookURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to create webhook")
		}
		if _, err := bot.Request(webhook); err != nil {
			log.WithError(err).Fatal("Failed to set webhook")
		}
		updates = bot.ListenForWebhook("/" + bot.Token)
		log.WithField("url", webhookURL).Info("Webhook set")
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.Bot.UpdateTimeout
		updates = bot.GetUpdatesChan(u)
		log.Info("Using long polling")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for update := range updates {
			update := update

			if update.CallbackQuery != nil {
				go func() {
					if err := commandHandler.HandleCallbackQuery(ctx, update.CallbackQuery); err != nil {
						log.WithError(err).Error("Failed to handle callback query")
					}
				}()
				continue
			}

			if update.Message == nil {
				continue
			}

			chatType := "private"
			if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
				chatType = "group"
			}
			metrics.RecordMessageReceived(chatType)

			if update.Message.IsCommand() {
				metrics.RecordCommandExecuted(update.Message.Command())
				go func() {
					if err := commandHandler.HandleCommand(ctx, update.Message); err != nil {
						log.WithError(err).Error("Failed to handle command")
					}
				}()
				continue
			}

			if update.Message.Document != nil {
				go func() {
					if err := documentHandler.HandleDocument(ctx, &update); err != nil {
						log.WithError(err).Error("Failed to handle document")
					}
				}()
				continue
			}

			go func() {
				if err := messageHandler.HandleMessage(ctx, &update); err != nil {
					log.WithError(err).Error("Failed to handle message")
				}
			}()
		}
	}()

	go reportSessions(ctx, store, metrics)

	<-sigChan
	log.Info("Shutdown signal received")

	if cfg.Bot.Webhook.Enabled {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Error("Failed to delete webhook")
		}
	}

	cancel()
	time.Sleep(2 * time.Second)
	log.Info("Bot stopped")
}

// reportSessions keeps the in-memory session gauge current.
func reportSessions(ctx context.Context, store *session.Store, metrics *middleware.Metrics) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetActiveSessions(store.Len())
		}
	}
}
