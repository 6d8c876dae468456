package main

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"casino/internal/interfaces"
	"casino/internal/models"
	"casino/internal/pkg/logger"
	"casino/internal/services"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	customIDGiveawayJoin = "giveaway:join"
	giveawayEmoji        = "🎉"
	reactionTimeout      = 10 * time.Second
)

var (
	durationPattern = regexp.MustCompile(`^(\d+)([smhd])$`)
	snowflakeRegexp = regexp.MustCompile(`\d{15,21}`)
)

// parseDuration accepts a single number with a unit, days included.
func parseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	unit := map[string]time.Duration{"s": time.Second, "m": time.Minute, "h": time.Hour, "d": 24 * time.Hour}[m[2]]
	return time.Duration(n) * unit, nil
}

// parseUserIDs pulls snowflakes out of a free-form list of ids and mentions.
func parseUserIDs(s string) []string {
	return snowflakeRegexp.FindAllString(s, -1)
}

func memberInfo(member *discordgo.Member) services.MemberInfo {
	info := services.MemberInfo{Roles: member.Roles, JoinedAt: member.JoinedAt}
	if member.User != nil {
		if created, err := discordgo.SnowflakeTimestamp(member.User.ID); err == nil {
			info.AccountCreatedAt = created
		}
	}
	return info
}

func memberChecker(member *discordgo.Member) interfaces.EligibilityChecker {
	return func(_ context.Context, giveaway *models.Giveaway, _ string) (bool, error) {
		if member == nil {
			return false, nil
		}
		return services.CheckMemberEligibility(giveaway, memberInfo(member), time.Now()), nil
	}
}

func giveawayOpenEmbed(giveaway *models.Giveaway) *discordgo.MessageEmbed {
	lines := []string{
		fmt.Sprintf("**%d** coins shared by **%d** winner(s)", giveaway.RewardTotal, giveaway.WinnersCount),
		fmt.Sprintf("Ends <t:%d:R>", giveaway.EndAt),
		fmt.Sprintf("Hosted by %s", mention(giveaway.HostID)),
	}
	if giveaway.RequiredRoleID != "" {
		lines = append(lines, fmt.Sprintf("Requires <@&%s>", giveaway.RequiredRoleID))
	}
	if giveaway.MinAccountAgeDays > 0 {
		lines = append(lines, fmt.Sprintf("Account older than %d day(s)", giveaway.MinAccountAgeDays))
	}
	if giveaway.MinMemberAgeDays > 0 {
		lines = append(lines, fmt.Sprintf("Member for %d day(s)", giveaway.MinMemberAgeDays))
	}
	return &discordgo.MessageEmbed{Title: giveaway.Prize, Description: strings.Join(lines, "\n"), Color: colorInfo}
}

func joinButton() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Join", Style: discordgo.PrimaryButton, CustomID: customIDGiveawayJoin, Emoji: &discordgo.ComponentEmoji{Name: giveawayEmoji}},
		}},
	}
}

func (b *botApp) commandGiveaway(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	sub, opts := subcommandOf(i)
	actorID := i.Member.User.ID

	switch sub {
	case "create":
		return b.createGiveaway(ctx, s, i, opts)
	case "end":
		giveaway, round, err := b.giveaway.End(ctx, opts.String("message"), actorID)
		if err != nil {
			return err
		}
		respondEmbed(s, i, services.GiveawayResultEmbed(giveaway, round.Number, round.Payouts), true)
	case "reroll":
		giveaway, round, err := b.giveaway.Reroll(ctx, opts.String("message"), int(opts.Int("winners")), actorID)
		if err != nil {
			return err
		}
		respondEmbed(s, i, services.GiveawayResultEmbed(giveaway, round.Number, round.Payouts), true)
	case "cancel":
		giveaway, err := b.giveaway.Cancel(ctx, opts.String("message"), actorID)
		if err != nil {
			return err
		}
		respondText(s, i, fmt.Sprintf("Giveaway **%s** cancelled.", giveaway.Prize), true)
	}
	return nil
}

func (b *botApp) createGiveaway(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts options) error {
	duration, err := parseDuration(opts.String("duration"))
	if err != nil {
		return &services.BusinessError{Reason: services.ReasonInvalidAmount, Message: "use a duration like 30m, 2h or 3d"}
	}

	mode := models.EntryMode(opts.String("mode"))
	if mode == "" {
		mode = models.EntryModeButton
	}

	input := services.GiveawayInput{
		CommunityID:       i.GuildID,
		ChannelID:         i.ChannelID,
		HostID:            i.Member.User.ID,
		Prize:             opts.String("prize"),
		RewardTotal:       opts.Int("reward"),
		WinnersCount:      int(opts.Int("winners")),
		EntryMode:         mode,
		ForcedWinnerIDs:   parseUserIDs(opts.String("forced")),
		RequiredRoleID:    opts.ID("role"),
		MinAccountAgeDays: int(opts.Int("min_account_days")),
		MinMemberAgeDays:  int(opts.Int("min_member_days")),
		EndAt:             time.Now().Add(duration),
	}

	// the message id is the giveaway id, so the message goes out first
	preview := &models.Giveaway{
		Prize:             input.Prize,
		RewardTotal:       input.RewardTotal,
		WinnersCount:      input.WinnersCount,
		HostID:            input.HostID,
		RequiredRoleID:    input.RequiredRoleID,
		MinAccountAgeDays: input.MinAccountAgeDays,
		MinMemberAgeDays:  input.MinMemberAgeDays,
		EndAt:             input.EndAt.Unix(),
	}
	send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{giveawayOpenEmbed(preview)}}
	if mode == models.EntryModeButton {
		send.Components = joinButton()
	}
	msg, err := s.ChannelMessageSendComplex(i.ChannelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	input.MessageID = msg.ID
	giveaway, err := b.giveaway.Create(ctx, input)
	if err != nil {
		// nolint:errcheck
		s.ChannelMessageDelete(msg.ChannelID, msg.ID)
		return err
	}

	if mode == models.EntryModeReaction {
		if err := s.MessageReactionAdd(msg.ChannelID, msg.ID, giveawayEmoji); err != nil {
			logger.WithError(err).Warn("seed giveaway reaction failed")
		}
	}

	respondText(s, i, fmt.Sprintf("Giveaway started, id `%s`.", giveaway.MessageID), true)
	return nil
}

func (b *botApp) componentGiveawayJoin(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	entered, err := b.giveaway.Toggle(ctx, i.Message.ID, i.Member.User.ID, memberChecker(i.Member))
	if err != nil {
		return err
	}

	if entered {
		respondText(s, i, "You joined the giveaway. Press again to leave.", true)
	} else {
		respondText(s, i, "You left the giveaway.", true)
	}
	return nil
}

// reactionGiveaway returns the reaction-mode giveaway behind a message, or nil.
func (b *botApp) reactionGiveaway(ctx context.Context, messageID string, emoji discordgo.Emoji) *models.Giveaway {
	if emoji.Name != giveawayEmoji {
		return nil
	}
	giveaway, err := b.giveaway.Get(ctx, messageID)
	if err != nil {
		if reason, ok := services.ReasonOf(err); !ok || reason != services.ReasonNotFound {
			logger.WithError(err).Warn("load giveaway for reaction failed")
		}
		return nil
	}
	if giveaway.EntryMode != models.EntryModeReaction {
		return nil
	}
	return giveaway
}

func (b *botApp) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.GuildID == "" || (s.State.User != nil && r.UserID == s.State.User.ID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reactionTimeout)
	defer cancel()

	giveaway := b.reactionGiveaway(ctx, r.MessageID, r.Emoji)
	if giveaway == nil {
		return
	}

	member := r.Member
	if member == nil {
		var err error
		member, err = s.GuildMember(r.GuildID, r.UserID, discordgo.WithContext(ctx))
		if err != nil {
			logger.WithError(err).Warn("fetch member for reaction failed")
			return
		}
	}
	if member.User != nil && member.User.Bot {
		return
	}

	fields := logrus.Fields{"giveaway_id": giveaway.MessageID, "user_id": r.UserID}
	err := b.joinByReaction(ctx, r, member)
	if err == nil {
		return
	}
	if _, ok := services.ReasonOf(err); !ok {
		logger.WithFields(fields).WithError(err).Error("reaction join failed")
	}
	// refused entries lose their reaction so the count on the message stays honest
	if err := s.MessageReactionRemove(r.ChannelID, r.MessageID, giveawayEmoji, r.UserID); err != nil {
		logger.WithFields(fields).WithError(err).Warn("remove refused reaction failed")
	}
}

func (b *botApp) joinByReaction(ctx context.Context, r *discordgo.MessageReactionAdd, member *discordgo.Member) error {
	blacklisted, err := b.moderation.IsBlacklisted(ctx, r.GuildID, r.UserID)
	if err != nil {
		return err
	}
	if blacklisted {
		return &services.BusinessError{Reason: services.ReasonBlacklisted}
	}

	_, err = b.giveaway.Join(ctx, r.MessageID, r.UserID, memberChecker(member))
	return err
}

func (b *botApp) onReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if r.GuildID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reactionTimeout)
	defer cancel()

	giveaway := b.reactionGiveaway(ctx, r.MessageID, r.Emoji)
	if giveaway == nil {
		return
	}

	if _, err := b.giveaway.Leave(ctx, r.MessageID, r.UserID); err != nil {
		if _, ok := services.ReasonOf(err); !ok {
			logger.WithFields(logrus.Fields{"giveaway_id": giveaway.MessageID, "user_id": r.UserID}).WithError(err).Error("reaction leave failed")
		}
	}
}
