package services

import (
	"context"
	"errors"
	"sync"

	"casino/internal/datastore/redis_store"
	"casino/internal/interfaces"
	"casino/internal/models"
	"casino/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
)

const localAuditQueueLength = 1000

// ServiceAudit is the AuditSink of every service. Events are logged, then queued for the bot
// worker that renders them into each community's log channel. Without redis the queue lives in
// process memory.
type ServiceAudit struct {
	container *do.Injector
	redisDB   redis.UniversalClient

	serviceConfig *ServiceConfig

	mu    sync.Mutex
	local []*models.AuditEvent
}

func NewServiceAudit(container *do.Injector) (*ServiceAudit, error) {
	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		redisDB = nil
	}

	return &ServiceAudit{container: container, redisDB: redisDB, serviceConfig: serviceConfig}, nil
}

func (service *ServiceAudit) Publish(ctx context.Context, event *models.AuditEvent) error {
	logger.WithFields(logrus.Fields{
		"kind":         event.Kind,
		"community_id": event.CommunityID,
		"user_id":      event.UserID,
		"actor_id":     event.ActorID,
		"source":       event.Source,
		"trace_id":     event.TraceID,
		"coins_delta":  event.CoinsDelta,
		"xp_delta":     event.XPDelta,
	}).Info("audit")

	if service.redisDB == nil {
		service.mu.Lock()
		service.local = append(service.local, event)
		if len(service.local) > localAuditQueueLength {
			service.local = service.local[len(service.local)-localAuditQueueLength:]
		}
		service.mu.Unlock()
		return nil
	}

	err := redis_store.PushAuditEvent(ctx, service.redisDB, event)
	if event.Kind == models.AuditKindTransaction || event.Kind == models.AuditKindReversal {
		err = errors.Join(err, redis_store.SetLeaderboard(ctx, service.redisDB, event.CommunityID, &models.LeaderboardItem{
			UserID: event.UserID,
			Score:  float64(event.CoinsAfter),
		}))
	}
	return err
}

// Drain hands at most n queued events to the renderer.
func (service *ServiceAudit) Drain(ctx context.Context, n int) ([]*models.AuditEvent, error) {
	if service.redisDB != nil {
		return redis_store.PopAuditEvents(ctx, service.redisDB, n)
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if n > len(service.local) {
		n = len(service.local)
	}
	events := make([]*models.AuditEvent, n)
	copy(events, service.local[:n])
	service.local = service.local[n:]
	return events, nil
}

func (service *ServiceAudit) SetLogChannel(ctx context.Context, communityID, channelID string) error {
	if service.redisDB != nil {
		return redis_store.SetLogChannel(ctx, service.redisDB, communityID, channelID)
	}
	return service.serviceConfig.SetConfig(ctx, CONFIG_LOG_CHANNEL_PREFIX+communityID, channelID)
}

// GetLogChannel returns "" when the community has no log channel.
func (service *ServiceAudit) GetLogChannel(ctx context.Context, communityID string) (string, error) {
	if service.redisDB != nil {
		channelID, err := redis_store.GetLogChannel(ctx, service.redisDB, communityID)
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return channelID, err
	}
	return service.serviceConfig.GetStringConfig(ctx, CONFIG_LOG_CHANNEL_PREFIX+communityID, "")
}

// Flush drains up to n events and renders each into its community log channel. Events of
// communities without a log channel are dropped. It returns how many events were rendered.
func (service *ServiceAudit) Flush(ctx context.Context, renderer interfaces.AuditRenderer, n int) (int, error) {
	events, err := service.Drain(ctx, n)
	if err != nil {
		return 0, err
	}

	channels := make(map[string]string)
	rendered := 0
	for _, event := range events {
		channelID, ok := channels[event.CommunityID]
		if !ok {
			channelID, err = service.GetLogChannel(ctx, event.CommunityID)
			if err != nil {
				return rendered, err
			}
			channels[event.CommunityID] = channelID
		}
		if channelID == "" {
			continue
		}

		err := renderer.RenderAudit(ctx, channelID, event)
		if err != nil {
			bestEffort("audit render", err, logrus.Fields{"community_id": event.CommunityID, "channel_id": channelID, "kind": event.Kind})
			continue
		}
		rendered++
	}
	return rendered, nil
}
