package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/persistence"
	"github.com/hrdesk/helpdesk-service/internal/repository"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// ChatService keeps the per-ticket chat room in step with the assignment
// state. The room membership is always the full set {requester, agent};
// re-syncing an unchanged membership is a no-op by construction.
type ChatService struct {
	rooms  repository.ChatRoomRepository
	redis  *persistence.Redis
	logger *zap.Logger
}

// NewChatService creates the service. The redis client may be nil; the
// presence mirror is then skipped.
func NewChatService(rooms repository.ChatRoomRepository, redis *persistence.Redis, logger *zap.Logger) *ChatService {
	return &ChatService{rooms: rooms, redis: redis, logger: logger}
}

// SyncRoom ensures the ticket has an active room whose participants are
// exactly the requester and, when assigned, the agent. Called on every
// transition that attaches an agent, so it must be idempotent.
func (s *ChatService) SyncRoom(ctx context.Context, ticket *domain.Ticket) error {
	room, err := s.rooms.EnsureRoom(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}

	participants := []int64{ticket.RequesterID}
	if ticket.AgentID != nil && *ticket.AgentID != ticket.RequesterID {
		participants = append(participants, *ticket.AgentID)
	}
	if err := s.rooms.ReplaceParticipants(ctx, room.ID, participants); err != nil {
		return apperrors.MapError(err)
	}

	s.mirrorParticipants(ctx, ticket.ID, participants)
	return nil
}

// CloseRoom deactivates the room when the ticket is resolved. Missing rooms
// are fine; not every ticket reaches an agent.
func (s *ChatService) CloseRoom(ctx context.Context, ticketID int64) error {
	room, err := s.rooms.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if err := s.rooms.Deactivate(ctx, room.ID); err != nil {
		return apperrors.MapError(err)
	}
	if s.redis != nil && s.redis.Client != nil {
		if err := s.redis.Client.Del(ctx, chatRoomKey(ticketID)).Err(); err != nil {
			s.logger.Warn("failed to clear chat presence", zap.Int64("ticket_id", ticketID), zap.Error(err))
		}
	}
	return nil
}

// Room returns the active room with its participants.
func (s *ChatService) Room(ctx context.Context, ticketID int64) (*domain.ChatRoom, error) {
	room, err := s.rooms.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("chat room", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return room, nil
}

// mirrorParticipants keeps a Redis set of room members for the realtime
// layer. Best effort, the database row is the source of truth.
func (s *ChatService) mirrorParticipants(ctx context.Context, ticketID int64, participants []int64) {
	if s.redis == nil || s.redis.Client == nil {
		return
	}
	key := chatRoomKey(ticketID)
	pipe := s.redis.Client.TxPipeline()
	pipe.Del(ctx, key)
	for _, id := range participants {
		pipe.SAdd(ctx, key, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("failed to mirror chat participants", zap.Int64("ticket_id", ticketID), zap.Error(err))
	}
}

func chatRoomKey(ticketID int64) string {
	return fmt.Sprintf("chat:room:%d:participants", ticketID)
}
