package cmd

import (
	"context"
	"fmt"
	"log"

	"scrimbet/bot"
	"scrimbet/config"
	"scrimbet/database"
	"scrimbet/events"
	"scrimbet/notify"
	"scrimbet/repository"
	"scrimbet/service"
	"scrimbet/workers"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting scrimbet...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus and unit of work factory
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	sessions := service.NewSessionStore(service.DefaultQuoteTTL)
	tournaments := service.NewTournamentManager(uowFactory)
	settlementService := service.NewSettlementService(uowFactory, tournaments)
	achievementService := service.NewAchievementService(uowFactory, service.NewStreakCounter())

	deps := bot.Deps{
		UserService:        service.NewUserService(uowFactory),
		BettingService:     service.NewBettingService(uowFactory, sessions, tournaments),
		DuelService:        service.NewDuelService(uowFactory, tournaments),
		MatchService:       service.NewMatchService(uowFactory, settlementService, cfg.TeamName),
		TournamentService:  tournaments,
		EconomyService:     service.NewEconomyService(uowFactory),
		StatsService:       service.NewStatsService(uowFactory),
		AchievementService: achievementService,
		EventBus:           eventBus,
	}

	// The achievement evaluator rides the event stream
	achievementService.Register(eventBus)
	log.Println("Services initialized successfully")

	// Initialize the Discord bot
	discordBot, err := bot.New(bot.Config{
		Token:       cfg.DiscordToken,
		GuildID:     cfg.DiscordGuildID,
		AdminRoleID: cfg.AdminRoleID,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}

	// Settlement DMs ride the same session
	notify.NewNotifier(discordBot.Session()).Register(eventBus)

	// Start the background sweeper
	sweeper, err := workers.NewSweeper(sessions, tournaments)
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")
	if err := sweeper.Stop(); err != nil {
		log.Printf("Error stopping sweeper: %v", err)
	}
	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}
	db.Close()
	log.Println("Shutdown complete")

	return nil
}
