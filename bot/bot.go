package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"scrimbet/events"
	"scrimbet/service"
)

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string
	// AdminRoleID gates match entry and tournament creation
	AdminRoleID string
}

// Bot is the Discord command surface over the wagering services
type Bot struct {
	config             Config
	session            *discordgo.Session
	userService        service.UserService
	bettingService     service.BettingService
	duelService        service.DuelService
	matchService       service.MatchService
	tournamentService  service.TournamentService
	economyService     service.EconomyService
	statsService       service.StatsService
	achievementService service.AchievementService
	eventBus           *events.Bus
}

// Deps bundles the services the bot fronts
type Deps struct {
	UserService        service.UserService
	BettingService     service.BettingService
	DuelService        service.DuelService
	MatchService       service.MatchService
	TournamentService  service.TournamentService
	EconomyService     service.EconomyService
	StatsService       service.StatsService
	AchievementService service.AchievementService
	EventBus           *events.Bus
}

// New creates the bot, opens the websocket and registers slash commands
func New(config Config, deps Deps) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	bot := &Bot{
		config:             config,
		session:            dg,
		userService:        deps.UserService,
		bettingService:     deps.BettingService,
		duelService:        deps.DuelService,
		matchService:       deps.MatchService,
		tournamentService:  deps.TournamentService,
		economyService:     deps.EconomyService,
		statsService:       deps.StatsService,
		achievementService: deps.AchievementService,
		eventBus:           deps.EventBus,
	}

	dg.AddHandler(bot.handleCommands)

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	log.Info("Discord bot connected")
	return bot, nil
}

// Session exposes the underlying Discord session for the DM notifier
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// handleCommands routes slash commands to their handlers
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case "balance":
		b.handleBalance(s, i)
	case "daily":
		b.handleDaily(s, i)
	case "transfer":
		b.handleTransfer(s, i)
	case "matches":
		b.handleMatches(s, i)
	case "bet":
		b.handleBet(s, i)
	case "parlay":
		b.handleParlay(s, i)
	case "duel":
		b.handleDuel(s, i)
	case "stats":
		b.handleStats(s, i)
	case "scoreboard":
		b.handleScoreboard(s, i)
	case "titles":
		b.handleTitles(s, i)
	case "tournament":
		b.handleTournament(s, i)
	case "match":
		b.handleMatchAdmin(s, i)
	default:
		log.WithField("command", data.Name).Warn("Unknown command")
	}
}
