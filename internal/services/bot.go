package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"casino/internal/models"

	"github.com/bwmarrin/discordgo"
)

const (
	colorInfo    = 0x5865F2
	colorSuccess = 0x57F287
	colorDanger  = 0xED4245
)

// Bot is the chat side of the core: it announces giveaway results, hands out cosmetic roles and
// renders audit events. None of it is required for a mutation to be correct.
type Bot struct {
	Session *discordgo.Session
}

func NewBot(token string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessageReactions

	return &Bot{Session: session}, nil
}

func (bot *Bot) AssignRole(ctx context.Context, communityID, userID, roleID string) error {
	return bot.Session.GuildMemberRoleAdd(communityID, userID, roleID, discordgo.WithContext(ctx))
}

func (bot *Bot) AnnounceGiveaway(ctx context.Context, giveaway *models.Giveaway, round int, payouts []models.GiveawayPayout) error {
	embed := GiveawayResultEmbed(giveaway, round, payouts)
	_, err := bot.Session.ChannelMessageSendComplex(giveaway.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Reference: &discordgo.MessageReference{
			MessageID: giveaway.MessageID,
			ChannelID: giveaway.ChannelID,
			GuildID:   giveaway.CommunityID,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	if round > 0 {
		return nil
	}
	// the entry button goes away once the giveaway is closed
	_, err = bot.Session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         giveaway.MessageID,
		Channel:    giveaway.ChannelID,
		Components: &[]discordgo.MessageComponent{},
	}, discordgo.WithContext(ctx))
	return err
}

// RenderAudit posts one event into the community log channel.
func (bot *Bot) RenderAudit(ctx context.Context, channelID string, event *models.AuditEvent) error {
	_, err := bot.Session.ChannelMessageSendEmbed(channelID, AuditEmbed(event), discordgo.WithContext(ctx))
	return err
}

func GiveawayResultEmbed(giveaway *models.Giveaway, round int, payouts []models.GiveawayPayout) *discordgo.MessageEmbed {
	title := "Giveaway ended"
	if round > 0 {
		title = fmt.Sprintf("Giveaway reroll #%d", round)
	}

	description := "No valid entrant, nobody wins."
	if len(payouts) > 0 {
		lines := make([]string, 0, len(payouts))
		for _, payout := range payouts {
			lines = append(lines, fmt.Sprintf("<@%s> wins **%d** coins", payout.UserID, payout.Amount))
		}
		description = strings.Join(lines, "\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Entries", Value: fmt.Sprintf("%d", giveaway.EntriesCount), Inline: true},
			{Name: "Pot", Value: fmt.Sprintf("%d", giveaway.RewardTotal), Inline: true},
		},
	}
	if giveaway.Prize != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Prize", Value: giveaway.Prize})
	}
	return embed
}

func AuditEmbed(event *models.AuditEvent) *discordgo.MessageEmbed {
	color := colorInfo
	if event.CoinsDelta < 0 || event.Kind == models.AuditKindReversal || event.Kind == models.AuditKindSanction {
		color = colorDanger
	}

	embed := &discordgo.MessageEmbed{
		Title:     string(event.Kind),
		Color:     color,
		Timestamp: event.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if event.Source != "" {
		embed.Title = fmt.Sprintf("%s · %s", event.Kind, event.Source)
	}

	add := func(name, value string, inline bool) {
		if value == "" {
			return
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline})
	}
	if event.UserID != "" {
		add("User", "<@"+event.UserID+">", true)
	}
	if event.ActorID != "" && event.ActorID != SYSTEM_ACTOR {
		add("By", "<@"+event.ActorID+">", true)
	}
	if event.CoinsDelta != 0 {
		add("Coins", fmt.Sprintf("%+d → %d", event.CoinsDelta, event.CoinsAfter), true)
	}
	if event.XPDelta != 0 {
		add("XP", fmt.Sprintf("%+d", event.XPDelta), true)
	}
	add("Reason", event.Reason, false)

	keys := make([]string, 0, len(event.Fields))
	for k := range event.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, event.Fields[k], true)
	}

	if event.TraceID != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "trace " + event.TraceID}
	}
	return embed
}
