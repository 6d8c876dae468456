package main

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"casino/internal/pkg/logger"
	"casino/internal/services"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
)

const interactionTimeout = 10 * time.Second

type handlerFunc func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error

type botApp struct {
	session *discordgo.Session

	ledger      *services.ServiceLedger
	draw        *services.ServiceDraw
	giveaway    *services.ServiceGiveaway
	games       *services.ServiceGames
	moderation  *services.ServiceModeration
	leaderboard *services.ServiceLeaderboard
	audit       *services.ServiceAudit

	commands   map[string]handlerFunc
	components map[string]handlerFunc
	voice      *voiceTracker
}

func newBotApp(container *do.Injector, session *discordgo.Session) (*botApp, error) {
	b := &botApp{
		session:    session,
		commands:   make(map[string]handlerFunc),
		components: make(map[string]handlerFunc),
		voice:      newVoiceTracker(time.Now),
	}

	var err error
	if b.ledger, err = do.Invoke[*services.ServiceLedger](container); err != nil {
		return nil, err
	}
	if b.draw, err = do.Invoke[*services.ServiceDraw](container); err != nil {
		return nil, err
	}
	if b.giveaway, err = do.Invoke[*services.ServiceGiveaway](container); err != nil {
		return nil, err
	}
	if b.games, err = do.Invoke[*services.ServiceGames](container); err != nil {
		return nil, err
	}
	if b.moderation, err = do.Invoke[*services.ServiceModeration](container); err != nil {
		return nil, err
	}
	if b.leaderboard, err = do.Invoke[*services.ServiceLeaderboard](container); err != nil {
		return nil, err
	}
	if b.audit, err = do.Invoke[*services.ServiceAudit](container); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *botApp) registerHandlers() {
	b.commands["balance"] = b.commandBalance
	b.commands["give"] = b.commandGive
	b.commands["daily"] = b.commandDaily
	b.commands["coinflip"] = b.commandCoinflip
	b.commands["slots"] = b.commandSlots
	b.commands["pull"] = b.commandPull
	b.commands["inventory"] = b.commandInventory
	b.commands["leaderboard"] = b.commandLeaderboard
	b.commands["giveaway"] = b.commandGiveaway
	b.commands["mod"] = b.commandMod
	b.commands["economy"] = b.commandEconomy

	b.components[customIDGiveawayJoin] = b.componentGiveawayJoin

	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onReactionRemove)
	b.session.AddHandler(b.onVoiceStateUpdate)
}

func (b *botApp) registerCommands(guildID string) error {
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, commandDefinitions())
	return err
}

func (b *botApp) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var name string
	var handler handlerFunc
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name = i.ApplicationCommandData().Name
		handler = b.commands[name]
	case discordgo.InteractionMessageComponent:
		name = i.MessageComponentData().CustomID
		handler = b.components[name]
	}
	if handler == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	fields := logrus.Fields{"interaction": name, "community_id": i.GuildID, "user_id": interactionUserID(i)}
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(fields).Errorf("panic: %v\n%s", r, debug.Stack())
			respondError(s, i, fmt.Errorf("internal error"))
		}
	}()

	if err := b.checkAllowed(ctx, i); err != nil {
		respondError(s, i, err)
		return
	}

	if err := handler(ctx, s, i); err != nil {
		if _, ok := services.ReasonOf(err); !ok {
			logger.WithFields(fields).WithError(err).Error("interaction failed")
		}
		respondError(s, i, err)
	}
}

// checkAllowed refuses blacklisted users before any ledger call. Guild commands only.
func (b *botApp) checkAllowed(ctx context.Context, i *discordgo.InteractionCreate) error {
	if i.GuildID == "" || i.Member == nil {
		return fmt.Errorf("this bot only works inside a server")
	}

	blacklisted, err := b.moderation.IsBlacklisted(ctx, i.GuildID, i.Member.User.ID)
	if err != nil {
		return err
	}
	if blacklisted {
		return &services.BusinessError{Reason: services.ReasonBlacklisted, Message: "you are blacklisted from the economy"}
	}
	return nil
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
