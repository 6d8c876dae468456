package main

import (
	"context"
	"fmt"
	"strings"

	"casino/internal/services"

	"github.com/bwmarrin/discordgo"
)

const (
	colorInfo    = 0x5865F2
	colorSuccess = 0x57F287
	colorDanger  = 0xED4245
)

func mention(userID string) string {
	return "<@" + userID + ">"
}

func (b *botApp) commandBalance(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	userID := optionsOf(i.ApplicationCommandData().Options).UserID("user")
	if userID == "" {
		userID = i.Member.User.ID
	}

	account, err := b.ledger.GetAccount(ctx, i.GuildID, userID)
	if err != nil {
		return err
	}
	profile, err := b.draw.GetProfile(ctx, i.GuildID, userID)
	if err != nil {
		return err
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Description: mention(userID),
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Coins", Value: fmt.Sprintf("%d", account.Coins), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("%d", account.XP), Inline: true},
			{Name: "Draws", Value: fmt.Sprintf("%d", profile.DrawCredits), Inline: true},
			{Name: "Voice minutes", Value: fmt.Sprintf("%d", profile.VoiceMinutes), Inline: true},
		},
	}, false)
	return nil
}

func (b *botApp) commandGive(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := optionsOf(i.ApplicationCommandData().Options)
	to := opts.UserID("user")

	result, err := b.ledger.Transfer(ctx, i.GuildID, i.Member.User.ID, to, opts.Int("amount"), services.Meta{
		Reason:    opts.String("reason"),
		CommandID: i.ID,
		ChannelID: i.ChannelID,
	})
	if err != nil {
		return err
	}

	respondText(s, i, fmt.Sprintf("%s sent **%d** coins to %s. You now have **%d**.",
		mention(i.Member.User.ID), opts.Int("amount"), mention(to), result.From.Coins), false)
	return nil
}

func (b *botApp) commandDaily(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	result, err := b.games.Daily(ctx, i.GuildID, i.Member.User.ID)
	if err != nil {
		return err
	}

	var amount int64
	if result.Transaction != nil {
		amount = result.Transaction.CoinsDelta
	}
	respondText(s, i, fmt.Sprintf("Daily claimed: **+%d** coins. Balance **%d**.", amount, result.Account.Coins), false)
	return nil
}

func gameEmbed(title string, result *services.GameResult) *discordgo.MessageEmbed {
	color := colorDanger
	outcome := fmt.Sprintf("You lost **%d** coins.", -result.Net)
	if result.Net >= 0 {
		color = colorSuccess
		outcome = fmt.Sprintf("You won **%d** coins.", result.Net)
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("%s\n%s\nBalance **%d**", result.Result, outcome, result.Account.Coins),
		Color:       color,
	}
}

func (b *botApp) commandCoinflip(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := optionsOf(i.ApplicationCommandData().Options)
	result, err := b.games.Coinflip(ctx, i.GuildID, i.Member.User.ID, opts.Int("bet"), opts.String("side"))
	if err != nil {
		return err
	}

	respondEmbed(s, i, gameEmbed("Coinflip", result), false)
	return nil
}

func (b *botApp) commandSlots(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	opts := optionsOf(i.ApplicationCommandData().Options)
	result, err := b.games.Slots(ctx, i.GuildID, i.Member.User.ID, opts.Int("bet"))
	if err != nil {
		return err
	}

	respondEmbed(s, i, gameEmbed("Slots", result), false)
	return nil
}

func describeOutcome(outcome services.PullOutcome) string {
	switch v := outcome.Outcome.(type) {
	case services.CoinsReward:
		return fmt.Sprintf("%s: +%d coins", outcome.Item.Name, v.Amount)
	case services.XPReward:
		return fmt.Sprintf("%s: +%d xp", outcome.Item.Name, v.Amount)
	case services.DrawsReward:
		return fmt.Sprintf("%s: +%d draws", outcome.Item.Name, v.Amount)
	case services.CosmeticReward:
		if outcome.Duplicate {
			return fmt.Sprintf("%s (already owned)", v.Name)
		}
		return fmt.Sprintf("%s: new cosmetic!", v.Name)
	}
	return fmt.Sprintf("%s: nothing", outcome.Item.Name)
}

func (b *botApp) commandPull(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	count := optionsOf(i.ApplicationCommandData().Options).Int("count")
	if count == 0 {
		count = 1
	}

	result, err := b.draw.Pull(ctx, i.GuildID, i.Member.User.ID, int(count))
	if err != nil {
		return err
	}

	lines := make([]string, len(result.Outcomes))
	for n, outcome := range result.Outcomes {
		lines[n] = describeOutcome(outcome)
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%d pull(s)", len(result.Outcomes)),
		Description: strings.Join(lines, "\n"),
		Color:       colorSuccess,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Draws left: %d · Coins: %d", result.Profile.DrawCredits, result.Account.Coins)},
	}, false)
	return nil
}

func (b *botApp) commandInventory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	items, err := b.draw.GetInventory(ctx, i.GuildID, i.Member.User.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		respondText(s, i, "Your inventory is empty.", true)
		return nil
	}

	names := make([]string, len(items))
	for n, item := range items {
		names[n] = "• " + item.Name
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{Title: "Inventory", Description: strings.Join(names, "\n"), Color: colorInfo}, true)
	return nil
}

func (b *botApp) commandLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	items, err := b.leaderboard.Top(ctx, i.GuildID, 0)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		respondText(s, i, "Nobody has coins yet.", false)
		return nil
	}

	lines := make([]string, len(items))
	for n, item := range items {
		lines[n] = fmt.Sprintf("**%d.** %s · %.0f", item.Rank, mention(item.UserID), item.Score)
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{Title: "Leaderboard", Description: strings.Join(lines, "\n"), Color: colorInfo}, false)
	return nil
}
