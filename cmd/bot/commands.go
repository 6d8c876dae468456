package main

import (
	"casino/internal/models"
	"casino/internal/services"

	"github.com/bwmarrin/discordgo"
)

var (
	permissionAdmin     int64 = discordgo.PermissionAdministrator
	permissionModerator int64 = discordgo.PermissionKickMembers
	minOne                    = 1.0
)

func userOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: name, Description: description, Required: required}
}

func intOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: name, Description: description, Required: required}
}

func positiveOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	option := intOption(name, description, required)
	option.MinValue = &minOne
	return option
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: description, Required: required}
}

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionSubCommand, Name: name, Description: description, Options: options}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	side := stringOption("side", "heads or tails", true)
	side.Choices = []*discordgo.ApplicationCommandOptionChoice{
		{Name: "heads", Value: services.COINFLIP_HEADS},
		{Name: "tails", Value: services.COINFLIP_TAILS},
	}

	pulls := positiveOption("count", "how many pulls", false)
	pulls.MaxValue = services.MAX_PULLS_PER_CALL

	mode := stringOption("mode", "how members enter", false)
	mode.Choices = []*discordgo.ApplicationCommandOptionChoice{
		{Name: "button", Value: string(models.EntryModeButton)},
		{Name: "reaction", Value: string(models.EntryModeReaction)},
	}

	winners := positiveOption("winners", "number of winners", true)
	winners.MaxValue = services.MAX_GIVEAWAY_WINNERS

	return []*discordgo.ApplicationCommand{
		{Name: "balance", Description: "Show coins, xp and draws", Options: []*discordgo.ApplicationCommandOption{
			userOption("user", "whose balance", false),
		}},
		{Name: "give", Description: "Send coins to another member", Options: []*discordgo.ApplicationCommandOption{
			userOption("user", "who receives", true),
			positiveOption("amount", "coins to send", true),
			stringOption("reason", "why", false),
		}},
		{Name: "daily", Description: "Claim the daily reward"},
		{Name: "coinflip", Description: "Bet coins on a coin flip", Options: []*discordgo.ApplicationCommandOption{
			positiveOption("bet", "coins to bet", true),
			side,
		}},
		{Name: "slots", Description: "Spin the slot machine", Options: []*discordgo.ApplicationCommandOption{
			positiveOption("bet", "coins to bet", true),
		}},
		{Name: "pull", Description: "Spend draw credits on the catalog", Options: []*discordgo.ApplicationCommandOption{pulls}},
		{Name: "inventory", Description: "List your cosmetics"},
		{Name: "leaderboard", Description: "Top coin holders"},
		{
			Name:                     "giveaway",
			Description:              "Run giveaways",
			DefaultMemberPermissions: &permissionModerator,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("create", "Start a giveaway in this channel",
					stringOption("prize", "what is given away", true),
					positiveOption("reward", "coins shared by the winners", true),
					winners,
					stringOption("duration", "for example 30m, 2h or 3d", true),
					mode,
					&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "required role"},
					intOption("min_account_days", "minimum account age", false),
					intOption("min_member_days", "minimum time in the server", false),
					stringOption("forced", "user ids or mentions that always win", false),
				),
				subcommand("end", "End a giveaway now", stringOption("message", "giveaway message id", true)),
				subcommand("reroll", "Draw new winners", stringOption("message", "giveaway message id", true), positiveOption("winners", "number of new winners", false)),
				subcommand("cancel", "Cancel without winners", stringOption("message", "giveaway message id", true)),
			},
		},
		{
			Name:                     "mod",
			Description:              "Moderation ledger",
			DefaultMemberPermissions: &permissionModerator,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("warn", "Warn a member", userOption("user", "member", true), stringOption("reason", "why", false)),
				subcommand("unwarn", "Remove a warning", userOption("user", "member", true), stringOption("reason", "why", false)),
				subcommand("blacklist", "Block a member from the economy", userOption("user", "member", true), stringOption("reason", "why", false)),
				subcommand("unblacklist", "Lift a blacklist", userOption("user", "member", true), stringOption("reason", "why", false)),
				subcommand("history", "Show sanctions of a member", userOption("user", "member", true)),
			},
		},
		{
			Name:                     "economy",
			Description:              "Economy administration",
			DefaultMemberPermissions: &permissionAdmin,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("adjust", "Add or remove coins and xp",
					userOption("user", "member", true),
					intOption("coins", "coins delta", false),
					intOption("xp", "xp delta", false),
					stringOption("reason", "why", false),
				),
				subcommand("draws", "Grant draw credits", userOption("user", "member", true), intOption("count", "credits delta", true), stringOption("reason", "why", false)),
				subcommand("revert", "Revert a ledger row", intOption("id", "transaction id", true), stringOption("reason", "why", false)),
				subcommand("revert-trace", "Revert every row of a trace", stringOption("trace", "trace id", true), stringOption("reason", "why", false)),
				subcommand("history", "Recent ledger rows of a member", userOption("user", "member", true)),
				subcommand("logchannel", "Set the audit log channel", &discordgo.ApplicationCommandOption{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "log channel",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				}),
			},
		},
	}
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

// subcommandOf returns the chosen subcommand and its options.
func subcommandOf(i *discordgo.InteractionCreate) (string, options) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return "", options{}
	}
	return data.Options[0].Name, optionsOf(data.Options[0].Options)
}

func (o options) String(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) Int(name string) int64 {
	if opt, ok := o[name]; ok {
		return opt.IntValue()
	}
	return 0
}

func (o options) UserID(name string) string {
	if opt, ok := o[name]; ok {
		if id, ok := opt.Value.(string); ok {
			return id
		}
	}
	return ""
}

func (o options) ID(name string) string {
	return o.UserID(name)
}
