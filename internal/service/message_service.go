package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KhanMaytok/pixl-interview/internal/apperr"
	"github.com/KhanMaytok/pixl-interview/internal/domain"
)

const maxContentLength = 4096

// IMessageRepository is the storage surface the service drives. The mongo
// implementation lives in internal/repository.
type IMessageRepository interface {
	GetOrCreateChat(ctx context.Context, pair domain.Pair) (*domain.Chat, error)
	FindChat(ctx context.Context, pair domain.Pair) (*domain.Chat, error)
	FindChatByID(ctx context.Context, chatID int64) (*domain.Chat, error)
	InsertMessage(ctx context.Context, m *domain.Message) error
	ListVisible(ctx context.Context, chatID, userID int64, cutoff *time.Time) ([]domain.Message, error)
	Edit(ctx context.Context, messageID, userID int64, content string, now time.Time) (*domain.Message, error)
	HideFor(ctx context.Context, messageID, userID int64) (*domain.Message, error)
	LastVisible(ctx context.Context, chatID, userID int64, cutoff *time.Time) (*domain.Message, error)
}

// ITrashLedger records and reads per-user history cutoffs.
type ITrashLedger interface {
	RecordDeletion(ctx context.Context, chatID, userID int64) error
	CurrentCutoff(ctx context.Context, chatID, userID int64) (*time.Time, error)
}

// IEventPublisher fans domain events to downstream consumers. Best-effort;
// implementations must not block the caller on a dead broker.
type IEventPublisher interface {
	MessageCreated(m *domain.Message)
	MessageEdited(m *domain.Message)
	ChatTrashed(chatID, userID int64)
}

type MessageService struct {
	repo  IMessageRepository
	trash ITrashLedger
	pub   IEventPublisher
	log   *zap.SugaredLogger
}

func NewMessageService(repo IMessageRepository, trash ITrashLedger, pub IEventPublisher, log *zap.SugaredLogger) *MessageService {
	return &MessageService{repo: repo, trash: trash, pub: pub, log: log}
}

// CreateMessage resolves the chat identity, performs the atomic
// get-or-create of the chat, and appends the message. The returned message
// carries its assigned id and timestamp. No internal retries: a storage
// failure surfaces as apperr.ErrPersistence and retry is the caller's call.
func (s *MessageService) CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty message", apperr.ErrValidation)
	}
	if len(content) > maxContentLength {
		return nil, fmt.Errorf("%w: message too long", apperr.ErrValidation)
	}
	pair, err := domain.ResolvePair(senderID, receiverID)
	if err != nil {
		return nil, err
	}

	chat, err := s.repo.GetOrCreateChat(ctx, pair)
	if err != nil {
		return nil, s.persistence("get or create chat", err)
	}

	m := &domain.Message{
		ChatID:   chat.ID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, s.persistence("insert message", err)
	}

	if s.pub != nil {
		s.pub.MessageCreated(m)
	}
	return m, nil
}

// GetChatMessages returns userID's view of the conversation: empty when the
// pair never talked, otherwise everything after the user's latest trash
// cutoff that is not hidden from them, oldest first.
func (s *MessageService) GetChatMessages(ctx context.Context, userID, otherUserID int64) ([]domain.Message, error) {
	pair, err := domain.ResolvePair(userID, otherUserID)
	if err != nil {
		return nil, err
	}

	chat, err := s.repo.FindChat(ctx, pair)
	if errors.Is(err, apperr.ErrNotFound) {
		// No conversation yet is a normal state, not a failure.
		return []domain.Message{}, nil
	}
	if err != nil {
		return nil, s.persistence("find chat", err)
	}

	cutoff, err := s.trash.CurrentCutoff(ctx, chat.ID, userID)
	if err != nil {
		return nil, s.persistence("read trash cutoff", err)
	}

	msgs, err := s.repo.ListVisible(ctx, chat.ID, userID, cutoff)
	if err != nil {
		return nil, s.persistence("list messages", err)
	}
	return msgs, nil
}

// EditMessage rewrites content on behalf of userID. Authorization is a
// single predicate inside the store: no match means not-found-or-forbidden,
// whichever it was.
func (s *MessageService) EditMessage(ctx context.Context, messageID, userID int64, newContent string) (*domain.Message, error) {
	if strings.TrimSpace(newContent) == "" {
		return nil, fmt.Errorf("%w: empty message", apperr.ErrValidation)
	}
	if len(newContent) > maxContentLength {
		return nil, fmt.Errorf("%w: message too long", apperr.ErrValidation)
	}

	m, err := s.repo.Edit(ctx, messageID, userID, newContent, time.Now().UTC())
	if errors.Is(err, apperr.ErrNotFoundOrForbidden) {
		return nil, err
	}
	if err != nil {
		return nil, s.persistence("edit message", err)
	}

	if s.pub != nil {
		s.pub.MessageEdited(m)
	}
	return m, nil
}

// DeleteMessage hides the message from userID's own view. Unlike edit this
// is open to either participant; hiding the same message twice is a no-op.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID, userID int64) (*domain.Message, error) {
	m, err := s.repo.HideFor(ctx, messageID, userID)
	if errors.Is(err, apperr.ErrNotFoundOrForbidden) {
		return nil, err
	}
	if err != nil {
		return nil, s.persistence("hide message", err)
	}
	return m, nil
}

// DeleteConversation appends a trash entry for userID. A pair that never
// talked gets apperr.ErrNotFound; no chat is created on this path.
func (s *MessageService) DeleteConversation(ctx context.Context, userID, otherUserID int64) error {
	pair, err := domain.ResolvePair(userID, otherUserID)
	if err != nil {
		return err
	}

	chat, err := s.repo.FindChat(ctx, pair)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return s.persistence("find chat", err)
	}

	if err := s.trash.RecordDeletion(ctx, chat.ID, userID); err != nil {
		return s.persistence("record deletion", err)
	}

	if s.pub != nil {
		s.pub.ChatTrashed(chat.ID, userID)
	}
	return nil
}

// ChatPeer returns the other participant of the chat, for callers that know
// a message but not who it was addressed to. A caller outside the chat gets
// apperr.ErrNotFoundOrForbidden.
func (s *MessageService) ChatPeer(ctx context.Context, chatID, userID int64) (int64, error) {
	chat, err := s.repo.FindChatByID(ctx, chatID)
	if errors.Is(err, apperr.ErrNotFound) {
		return 0, apperr.ErrNotFound
	}
	if err != nil {
		return 0, s.persistence("find chat", err)
	}
	peer, ok := chat.Peer(userID)
	if !ok {
		return 0, apperr.ErrNotFoundOrForbidden
	}
	return peer, nil
}

// LastMessage returns the newest message of userID's view, or
// apperr.ErrNotFound when there is none.
func (s *MessageService) LastMessage(ctx context.Context, userID, otherUserID int64) (*domain.Message, error) {
	pair, err := domain.ResolvePair(userID, otherUserID)
	if err != nil {
		return nil, err
	}

	chat, err := s.repo.FindChat(ctx, pair)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, s.persistence("find chat", err)
	}

	cutoff, err := s.trash.CurrentCutoff(ctx, chat.ID, userID)
	if err != nil {
		return nil, s.persistence("read trash cutoff", err)
	}

	m, err := s.repo.LastVisible(ctx, chat.ID, userID, cutoff)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, s.persistence("last message", err)
	}
	return m, nil
}

func (s *MessageService) persistence(op string, err error) error {
	s.log.Errorw(op, "err", err)
	return fmt.Errorf("%s: %w", op, apperr.ErrPersistence)
}
