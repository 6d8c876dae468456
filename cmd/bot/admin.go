package main

import (
	"context"
	"fmt"
	"strings"

	"casino/internal/datastore"
	"casino/internal/models"
	"casino/internal/services"

	"github.com/bwmarrin/discordgo"
)

const historyLimit = 10

func (b *botApp) commandMod(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := subcommandOf(i)
	userID := opts.UserID("user")
	actorID := i.Member.User.ID
	reason := opts.String("reason")

	var (
		state *models.SanctionState
		err   error
	)
	switch sub {
	case "warn":
		state, err = b.moderation.Warn(ctx, i.GuildID, userID, actorID, reason)
	case "unwarn":
		state, err = b.moderation.Unwarn(ctx, i.GuildID, userID, actorID, reason)
	case "blacklist":
		state, err = b.moderation.Blacklist(ctx, i.GuildID, userID, actorID, reason)
	case "unblacklist":
		state, err = b.moderation.Unblacklist(ctx, i.GuildID, userID, actorID, reason)
	case "history":
		return b.sanctionHistory(ctx, s, i, userID)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	respondText(s, i, fmt.Sprintf("%s: %d warning(s), blacklisted: %t.", mention(userID), state.Warns, state.Blacklisted), true)
	return nil
}

func (b *botApp) sanctionHistory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string) error {
	events, err := b.moderation.ListSanctions(ctx, i.GuildID, userID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		respondText(s, i, fmt.Sprintf("%s has a clean record.", mention(userID)), true)
		return nil
	}

	lines := make([]string, 0, len(events))
	for _, event := range events {
		line := fmt.Sprintf("<t:%d:d> **%s** by %s", event.CreatedAt.Unix(), event.Kind, mention(event.ActorID))
		if event.Reason != "" {
			line += ": " + event.Reason
		}
		lines = append(lines, line)
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{Title: "Sanctions", Description: strings.Join(lines, "\n"), Color: colorDanger}, true)
	return nil
}

func adminMeta(i *discordgo.InteractionCreate, reason string) services.Meta {
	return services.Meta{
		ActorID:   i.Member.User.ID,
		Reason:    reason,
		CommandID: i.ID,
		ChannelID: i.ChannelID,
	}
}

func (b *botApp) commandEconomy(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := subcommandOf(i)
	meta := adminMeta(i, opts.String("reason"))

	switch sub {
	case "adjust":
		meta.Source = services.SOURCE_ADMIN
		meta.ForceLog = true
		meta.Extra = map[string]interface{}{"admin_note": meta.Reason}
		result, err := b.ledger.AdjustBalance(ctx, i.GuildID, opts.UserID("user"), services.Delta{Coins: opts.Int("coins"), XP: opts.Int("xp")}, meta)
		if err != nil {
			return err
		}
		respondText(s, i, fmt.Sprintf("%s now has **%d** coins and **%d** xp.", mention(result.Account.UserID), result.Account.Coins, result.Account.XP), true)

	case "draws":
		profile, err := b.draw.GrantDrawCredits(ctx, i.GuildID, opts.UserID("user"), opts.Int("count"), meta)
		if err != nil {
			return err
		}
		respondText(s, i, fmt.Sprintf("%s now has **%d** draw credit(s).", mention(profile.UserID), profile.DrawCredits), true)

	case "revert":
		result, err := b.ledger.ReverseTransaction(ctx, i.GuildID, opts.Int("id"), meta)
		if err != nil {
			return err
		}
		respondText(s, i, fmt.Sprintf("Reverted #%d with #%d.", result.Original.ID, result.Reversal.ID), true)

	case "revert-trace":
		results, err := b.ledger.ReverseTrace(ctx, i.GuildID, opts.String("trace"), meta)
		if err != nil {
			return err
		}
		respondText(s, i, fmt.Sprintf("Reverted %d row(s) of trace `%s`.", len(results), opts.String("trace")), true)

	case "history":
		return b.ledgerHistory(ctx, s, i, opts.UserID("user"))

	case "logchannel":
		channelID := opts.ID("channel")
		if err := b.audit.SetLogChannel(ctx, i.GuildID, channelID); err != nil {
			return err
		}
		respondText(s, i, fmt.Sprintf("Economy events will be logged in <#%s>.", channelID), true)
	}
	return nil
}

func describeTransaction(tx *models.EconomyTransaction) string {
	line := fmt.Sprintf("`#%d` <t:%d:R> %s", tx.ID, tx.CreatedAt.Unix(), tx.Source)
	if tx.CoinsDelta != 0 {
		line += fmt.Sprintf(" %+d coins", tx.CoinsDelta)
	}
	if tx.XPDelta != 0 {
		line += fmt.Sprintf(" %+d xp", tx.XPDelta)
	}
	if tx.RevertedAt != nil {
		line = "~~" + line + "~~"
	}
	return line
}

func (b *botApp) ledgerHistory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, userID string) error {
	records, err := b.ledger.ListTransactions(ctx, i.GuildID, datastore.TransactionFilter{UserID: userID, Limit: historyLimit})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		respondText(s, i, fmt.Sprintf("No ledger rows for %s.", mention(userID)), true)
		return nil
	}

	lines := make([]string, len(records))
	for n := range records {
		lines[n] = describeTransaction(&records[n])
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{Title: "Ledger", Description: strings.Join(lines, "\n"), Color: colorInfo}, true)
	return nil
}
