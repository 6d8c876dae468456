package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"casino/internal/pkg/logger"
	"casino/internal/services"

	"github.com/bwmarrin/discordgo"
)

var reasonMessages = map[services.Reason]string{
	services.ReasonInsufficientFunds:   "You do not have enough coins.",
	services.ReasonNotEnoughCredits:    "You do not have enough draw credits.",
	services.ReasonInvalidAmount:       "That amount is not valid.",
	services.ReasonNotFound:            "Nothing was found.",
	services.ReasonAlreadyReverted:     "That transaction was already reverted.",
	services.ReasonNoEffect:            "Nothing changed.",
	services.ReasonGiveawayNotActive:   "This giveaway is not running.",
	services.ReasonGiveawayExpired:     "This giveaway is over.",
	services.ReasonNotEligible:         "You do not meet the requirements of this giveaway.",
	services.ReasonLocked:              "This giveaway is being processed, try again in a moment.",
	services.ReasonDrawFailed:          "The draw could not be completed.",
	services.ReasonDatabaseUnavailable: "The casino is closed for maintenance, try again later.",
	services.ReasonCooldown:            "You already claimed it.",
	services.ReasonRateLimited:         "Slow down.",
	services.ReasonBlacklisted:         "You are not allowed to use the economy.",
}

// errorMessage turns an error into a message safe to show to members. Infrastructure
// details stay in the logs.
func errorMessage(err error) string {
	reason, ok := services.ReasonOf(err)
	if !ok {
		return "Something went wrong."
	}

	msg := reasonMessages[reason]
	if msg == "" {
		msg = string(reason)
	}

	var businessErr *services.BusinessError
	if errors.As(err, &businessErr) {
		if businessErr.RetryAfter > 0 {
			msg = fmt.Sprintf("%s Try again in %s.", msg, humanDuration(businessErr.RetryAfter))
		} else if reason == services.ReasonInvalidAmount && businessErr.Message != "" {
			msg = fmt.Sprintf("%s %s.", msg, upperFirst(businessErr.Message))
		}
	}
	return msg
}

func humanDuration(d time.Duration) string {
	if d < time.Second {
		return "a moment"
	}
	d = d.Round(time.Second)
	if d >= time.Hour {
		d = d.Round(time.Minute)
	}
	return d.String()
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		logger.WithError(err).Warn("interaction respond failed")
	}
}

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	respond(s, i, data)
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	respond(s, i, data)
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	respondText(s, i, errorMessage(err), true)
}
