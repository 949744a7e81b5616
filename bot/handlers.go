package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"scrimbet/models"
	"scrimbet/service"
)

func parseDiscordID(id string) int64 {
	parsed, _ := strconv.ParseInt(id, 10, 64)
	return parsed
}

func (b *Bot) guildID() int64 {
	return parseDiscordID(b.config.GuildID)
}

// touchUser makes sure the invoking user exists before any wager flow
func (b *Bot) touchUser(ctx context.Context, user *discordgo.User) (*models.User, error) {
	return b.userService.GetOrCreateUser(ctx, parseDiscordID(user.ID), user.Username)
}

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	user, err := b.touchUser(ctx, interactionUser(i))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respond(s, i, fmt.Sprintf("💰 Your balance: **%s points**", FormatBalance(user.Balance)))
}

func (b *Bot) handleDaily(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	caller := interactionUser(i)
	if _, err := b.touchUser(ctx, caller); err != nil {
		b.respondError(s, i, err)
		return
	}

	result, err := b.economyService.ClaimDaily(ctx, parseDiscordID(caller.ID))
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respond(s, i, fmt.Sprintf("☀️ Claimed **%s points**. New balance: **%s**. Next claim %s.",
		FormatBalance(result.Amount), FormatBalance(result.NewBalance), FormatDiscordTimestamp(result.NextReset, "R")))
}

func (b *Bot) handleTransfer(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	caller := interactionUser(i)
	opts := optionMap(i.ApplicationCommandData().Options)
	recipient := opts["user"].UserValue(s)
	amount := opts["amount"].IntValue()

	if _, err := b.touchUser(ctx, caller); err != nil {
		b.respondError(s, i, err)
		return
	}
	if _, err := b.touchUser(ctx, recipient); err != nil {
		b.respondError(s, i, err)
		return
	}

	result, err := b.economyService.Transfer(ctx, parseDiscordID(caller.ID), parseDiscordID(recipient.ID), amount)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respond(s, i, fmt.Sprintf("✅ Sent **%s points** to **%s**. Your balance: **%s**.",
		FormatBalance(result.Amount), result.RecipientName, FormatBalance(result.NewBalance)))
}

func (b *Bot) handleMatches(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	matches, err := b.matchService.GetUpcoming(ctx, 10)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(matches) == 0 {
		b.respond(s, i, "No matches are open for betting right now.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Upcoming matches**\n")
	for _, m := range matches {
		fmt.Fprintf(&sb, "`#%d` %s vs %s (Bo%d) - %s\n",
			m.ID, m.TeamA, m.TeamB, m.NumberOfGames, FormatDiscordTimestamp(m.ScheduledAt, "f"))
	}
	b.respond(s, i, sb.String())
}

func (b *Bot) handleBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	caller := interactionUser(i)
	if _, err := b.touchUser(ctx, caller); err != nil {
		b.respondError(s, i, err)
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "quote":
		quote, err := b.bettingService.QuoteBet(ctx, parseDiscordID(caller.ID),
			opts["match"].IntValue(), models.BetKind(opts["kind"].StringValue()), opts["selection"].StringValue())
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("📊 **%s** at **%.2f**. Confirm with `/bet confirm flow:%s amount:<stake>` before %s.",
			quote.Selection, quote.Odds, quote.FlowID, FormatDiscordTimestamp(quote.ExpiresAt, "R")))

	case "confirm":
		receipt, err := b.bettingService.ConfirmBet(ctx, parseDiscordID(caller.ID),
			opts["flow"].StringValue(), opts["amount"].IntValue())
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("🎟️ Bet `#%d` placed: **%s points** on **%s** at **%.2f**. Potential payout **%s**. Balance: **%s**.",
			receipt.Bet.ID, FormatBalance(receipt.Bet.Amount), receipt.Bet.Selection, receipt.Bet.Odds,
			FormatBalance(receipt.PotentialPayout), FormatBalance(receipt.NewBalance)))
	}
}

// parseParlayLegs parses "match:kind:selection" entries separated by commas
func parseParlayLegs(raw string) ([]service.ParlayLegRequest, error) {
	parts := strings.Split(raw, ",")
	legs := make([]service.ParlayLegRequest, 0, len(parts))
	for _, part := range parts {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("leg %q must look like match:kind:selection", part)
		}
		matchID, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("leg %q has a bad match ID", part)
		}
		legs = append(legs, service.ParlayLegRequest{
			MatchID:   matchID,
			Kind:      models.BetKind(fields[1]),
			Selection: fields[2],
		})
	}
	return legs, nil
}

func (b *Bot) handleParlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	caller := interactionUser(i)
	if _, err := b.touchUser(ctx, caller); err != nil {
		b.respondError(s, i, err)
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "quote":
		legs, err := parseParlayLegs(opts["legs"].StringValue())
		if err != nil {
			b.respond(s, i, "❌ "+err.Error())
			return
		}
		quote, err := b.bettingService.QuoteParlay(ctx, parseDiscordID(caller.ID), legs)
		if err != nil {
			b.respondError(s, i, err)
			return
		}

		var sb strings.Builder
		sb.WriteString("🧮 **Parlay quote**\n")
		for _, leg := range quote.Legs {
			fmt.Fprintf(&sb, "• match `#%d` %s at %.2f\n", leg.MatchID, leg.Selection, leg.Odds)
		}
		fmt.Fprintf(&sb, "Total odds **%.2f**. Confirm with `/parlay confirm flow:%s amount:<stake>` before %s.",
			quote.TotalOdds, quote.FlowID, FormatDiscordTimestamp(quote.ExpiresAt, "R"))
		b.respond(s, i, sb.String())

	case "confirm":
		receipt, err := b.bettingService.ConfirmParlay(ctx, parseDiscordID(caller.ID),
			opts["flow"].StringValue(), opts["amount"].IntValue())
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("🎟️ Parlay `#%d` placed: **%s points** across %d legs at **%.2f**. Potential payout **%s**. Balance: **%s**.",
			receipt.Parlay.ID, FormatBalance(receipt.Parlay.Amount), len(receipt.Parlay.Legs), receipt.Parlay.TotalOdds,
			FormatBalance(receipt.PotentialPayout), FormatBalance(receipt.NewBalance)))
	}
}

func (b *Bot) handleDuel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	caller := interactionUser(i)
	callerID := parseDiscordID(caller.ID)
	if _, err := b.touchUser(ctx, caller); err != nil {
		b.respondError(s, i, err)
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "propose":
		opponent := opts["user"].UserValue(s)
		if _, err := b.touchUser(ctx, opponent); err != nil {
			b.respondError(s, i, err)
			return
		}
		duel, err := b.duelService.Propose(ctx, callerID, parseDiscordID(opponent.ID),
			opts["match"].IntValue(), opts["team"].StringValue(), opts["amount"].IntValue())
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("⚔️ Duel `#%d` proposed against **%s** for **%s points** each. They get **%s**.",
			duel.ID, opponent.Username, FormatBalance(duel.Amount), duel.OpponentTeam))

	case "accept":
		duel, err := b.duelService.Accept(ctx, opts["duel"].IntValue(), callerID)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("⚔️ Duel `#%d` is on! **%s points** each are locked in.",
			duel.ID, FormatBalance(duel.Amount)))

	case "decline":
		if err := b.duelService.Decline(ctx, opts["duel"].IntValue(), callerID); err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, "Duel declined.")

	case "cancel":
		if err := b.duelService.Cancel(ctx, opts["duel"].IntValue(), callerID); err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, "Duel cancelled.")

	case "pending":
		duels, err := b.duelService.PendingFor(ctx, callerID)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		if len(duels) == 0 {
			b.respond(s, i, "No duels are waiting on you.")
			return
		}
		var sb strings.Builder
		sb.WriteString("**Duels waiting on you**\n")
		for _, d := range duels {
			fmt.Fprintf(&sb, "`#%d` <@%d> backs %s on match `#%d` for %s points\n",
				d.ID, d.ChallengerID, d.ChallengerTeam, d.MatchID, FormatBalance(d.Amount))
		}
		b.respond(s, i, sb.String())
	}
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	target := interactionUser(i)
	if opts := optionMap(i.ApplicationCommandData().Options); opts["user"] != nil {
		target = opts["user"].UserValue(s)
	}
	if _, err := b.touchUser(ctx, target); err != nil {
		b.respondError(s, i, err)
		return
	}

	stats, err := b.statsService.GetUserStats(ctx, parseDiscordID(target.ID))
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	title := ""
	if stats.TitleName != "" {
		title = fmt.Sprintf(" - *%s*", stats.TitleName)
	}
	b.respond(s, i, fmt.Sprintf(
		"**%s**%s\nBalance: **%s points**\nBets: %d-%d (%d pushed)\nDuels: %d-%d\nParlays: %d-%d",
		stats.Username, title, FormatBalance(stats.Balance),
		stats.Bets.Won, stats.Bets.Lost, stats.Bets.Pushed,
		stats.Duels.Won, stats.Duels.Lost,
		stats.Parlays.Won, stats.Parlays.Lost))
}

func (b *Bot) handleScoreboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	entries, err := b.statsService.GetScoreboard(ctx, 10)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	if len(entries) == 0 {
		b.respond(s, i, "Nobody is on the board yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 **Scoreboard**\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d. **%s** - %s points (%d/%d bets won)\n",
			e.Rank, e.Username, FormatBalance(e.Balance), e.BetsWon, e.BetsTotal)
	}
	b.respond(s, i, sb.String())
}

func (b *Bot) handleTitles(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	caller := interactionUser(i)
	callerID := parseDiscordID(caller.ID)

	sub := i.ApplicationCommandData().Options[0]
	switch sub.Name {
	case "list":
		keys, err := b.achievementService.UnlockedTitles(ctx, callerID)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		if len(keys) == 0 {
			b.respond(s, i, "You haven't unlocked any titles yet.")
			return
		}
		b.respond(s, i, "🎖️ Unlocked titles: `"+strings.Join(keys, "`, `")+"`")

	case "display":
		key := optionMap(sub.Options)["title"].StringValue()
		if err := b.achievementService.SetDisplayedTitle(ctx, callerID, key); err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, "Displayed title updated.")
	}
}

func (b *Bot) handleTournament(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	caller := interactionUser(i)
	callerID := parseDiscordID(caller.ID)

	sub := i.ApplicationCommandData().Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "join":
		if _, err := b.touchUser(ctx, caller); err != nil {
			b.respondError(s, i, err)
			return
		}
		tournament, err := b.tournamentService.Join(ctx, b.guildID(), callerID)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("🏟️ You're in **%s**! It runs %s to %s.",
			tournament.Name, FormatDiscordTimestamp(tournament.StartsAt, "f"), FormatDiscordTimestamp(tournament.EndsAt, "f")))

	case "standings":
		tournament, standings, err := b.tournamentService.Standings(ctx, b.guildID(), 10)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "🏟️ **%s** (%s)\n", tournament.Name, tournament.Status)
		for rank, p := range standings {
			fmt.Fprintf(&sb, "%d. <@%d> - %s points\n", rank+1, p.DiscordID, FormatBalance(p.Points))
		}
		if len(standings) == 0 {
			sb.WriteString("No participants yet.")
		}
		b.respond(s, i, sb.String())

	case "create":
		if !b.isAdmin(i) {
			b.respond(s, i, "❌ Only admins can create tournaments.")
			return
		}
		now := time.Now()
		registrationEnds := now.Add(time.Duration(opts["registration_hours"].IntValue()) * time.Hour)
		ends := registrationEnds.Add(time.Duration(opts["duration_days"].IntValue()) * 24 * time.Hour)
		tournament, err := b.tournamentService.CreateTournament(ctx, b.guildID(),
			opts["name"].StringValue(), opts["stake"].IntValue(), registrationEnds, registrationEnds, ends)
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("🏟️ **%s** created. Registration closes %s.",
			tournament.Name, FormatDiscordTimestamp(tournament.RegistrationEndsAt, "R")))
	}
}

func (b *Bot) handleMatchAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	if !b.isAdmin(i) {
		b.respond(s, i, "❌ Only admins can manage matches.")
		return
	}

	sub := i.ApplicationCommandData().Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "schedule":
		match, err := b.matchService.ScheduleMatch(ctx, opts["opponent"].StringValue(),
			int(opts["games"].IntValue()), time.Now().Add(time.Duration(opts["hours"].IntValue())*time.Hour))
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("📅 Match `#%d`: %s vs %s (Bo%d) at %s.",
			match.ID, match.TeamA, match.TeamB, match.NumberOfGames, FormatDiscordTimestamp(match.ScheduledAt, "f")))

	case "finish":
		summary, err := b.matchService.FinishMatch(ctx, opts["match"].IntValue(), opts["score"].StringValue())
		if err != nil {
			b.respondError(s, i, err)
			return
		}
		b.respond(s, i, fmt.Sprintf("🏁 Match `#%d` settled: %d bets, %d duels, %d parlays (%d parlays still open, %d failures).",
			summary.MatchID, summary.BetsSettled, summary.DuelsSettled, summary.ParlaysSettled, summary.ParlaysPending, summary.Failures))
	}
}
