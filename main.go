package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"telegram-focus-bot/internal/config"
	"telegram-focus-bot/internal/handlers"
	"telegram-focus-bot/internal/health"
	"telegram-focus-bot/internal/messages"
	"telegram-focus-bot/internal/pomodoro"
	"telegram-focus-bot/internal/reminder"
	"telegram-focus-bot/internal/scheduler"
	"telegram-focus-bot/internal/storage"
	"telegram-focus-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	utils.Must(err)

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	utils.Must(err)
	log.Printf("✅ Authorized as @%s", bot.Self.UserName)

	db, err := storage.New(cfg.DatabaseURL)
	utils.Must(err)
	defer db.Close()

	clock := clockwork.NewRealClock()
	timers, err := scheduler.New(clock)
	utils.Must(err)

	notifier := messages.NewTelegram(bot)

	queue := reminder.NewQueue()
	dispatcher := reminder.NewDispatcher(queue, db, notifier, clock, cfg.FollowUpDelay)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		dispatcher.Run(ctx)
	}()
	utils.Must(reminder.NewPoller(db, queue, clock).Start(timers, cfg.PollInterval))

	pm := pomodoro.NewManager(db, notifier, timers, clock, cfg.Pomodoro)
	timers.Start()

	if cfg.HTTPAddr != "" {
		status := health.Handler(db, health.Stats{
			QueueDepth:     queue.Len,
			InFlight:       queue.InFlight,
			ActivePomodoro: pm.Active,
		})
		go func() {
			if err := health.Serve(ctx, cfg.HTTPAddr, status); err != nil {
				log.Printf("status server: %v", err)
			}
		}()
	}

	h := handlers.NewHandler(db, notifier, pm, cfg.Timezone, clock)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := bot.GetUpdatesChan(updateConfig)

	log.Println("🚀 Bot is running")
	h.Listen(ctx, updates)

	log.Println("⏹️ Shutting down")
	bot.StopReceivingUpdates()
	<-workerDone
	if err := timers.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
}
