package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/barbershop/internal/chat"
	"github.com/barbershop/internal/logger"
	"github.com/barbershop/internal/metrics"
	"github.com/barbershop/internal/model"
	"github.com/barbershop/internal/storage"
)

const (
	MaxBodyRunes        = 800
	MaxDisplayNameRunes = 60
)

// MessageStore — журнал сообщений каналов (repository.MessageRepository).
type MessageStore interface {
	Append(ctx context.Context, channel string, msg model.Message) (model.Message, error)
	ReadAll(ctx context.Context, channel string) ([]model.Message, error)
}

// ConversationIndex — индекс переписок салона (repository.ConversationIndexRepository).
type ConversationIndex interface {
	Upsert(ctx context.Context, shopID int64, e model.ConversationEntry) error
	List(ctx context.Context, shopID int64) ([]model.ConversationEntry, error)
}

// ShopResolver находит салон по записи для bk_<id>_… каналов.
type ShopResolver interface {
	ShopForAppointment(ctx context.Context, appointmentID int64) (shopID int64, ok bool, err error)
}

// OwnershipChecker подтверждает, что владелец действительно владеет салоном.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, shopID int64, userID string) (bool, error)
}

type SendRequest struct {
	Channel string
	Body    string
}

type FetchRequest struct {
	Channel string
	Since   *int64
}

type FetchResult struct {
	Messages   []model.Message `json:"messages"`
	ServerTime int64           `json:"server_time"`
}

// ChatService связывает проверки, ограничитель, журнал каналов и индекс переписок.
type ChatService struct {
	messages MessageStore
	index    ConversationIndex
	limiter  storage.RateLimitStore
	shops    ShopResolver
	owners   OwnershipChecker
	now      func() time.Time
}

type Option func(*ChatService)

// WithShopResolver включает индексацию bk_-каналов. Без него они в индекс не попадают.
func WithShopResolver(r ShopResolver) Option {
	return func(s *ChatService) { s.shops = r }
}

// WithOwnershipChecker включает список переписок для владельцев.
func WithOwnershipChecker(c OwnershipChecker) Option {
	return func(s *ChatService) { s.owners = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *ChatService) { s.now = now }
}

func NewChatService(messages MessageStore, index ConversationIndex, limiter storage.RateLimitStore, opts ...Option) *ChatService {
	s := &ChatService{messages: messages, index: index, limiter: limiter, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func authorize(actor *model.Actor) (model.Role, error) {
	if actor == nil {
		return "", chat.NewError(chat.CodeUnauthorized, "no authenticated actor", nil)
	}
	return chat.Authorize(actor.Role)
}

// Send: авторизация → канал → непустой текст → лимит → запись → индекс.
// Ошибка индекса не возвращается: индекс — кеш, а не источник истины.
func (s *ChatService) Send(ctx context.Context, actor *model.Actor, req SendRequest) (model.Message, error) {
	role, err := authorize(actor)
	if err != nil {
		return model.Message{}, err
	}
	ch, err := chat.Validate(req.Channel)
	if err != nil {
		return model.Message{}, err
	}
	body := strings.TrimSpace(strings.ToValidUTF8(req.Body, ""))
	if body == "" {
		return model.Message{}, chat.NewError(chat.CodeEmptyMessage, "message body is empty", nil)
	}
	body = truncateRunes(body, MaxBodyRunes)

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, limiterKey(actor))
		if err != nil {
			// Хранилище лимитов недоступно — не блокируем переписку.
			logger.Errorf("chat.Send rate limit user=%s: %v", actor.UserID, err)
		} else if !allowed {
			metrics.RateLimitHits.Inc()
			return model.Message{}, chat.NewError(chat.CodeRateLimited, "too many messages", nil)
		}
	}

	saved, err := s.messages.Append(ctx, ch.Raw, model.Message{
		Role:        role,
		DisplayName: displayName(actor.DisplayName, role),
		Body:        body,
	})
	if err != nil {
		logger.Errorf("chat.Send append channel=%s: %v", ch.Raw, err)
		return model.Message{}, chat.NewError(chat.CodeWriteFailed, "could not persist message", err)
	}
	metrics.MessagesAppended.WithLabelValues(string(ch.Kind)).Inc()

	s.updateIndex(ctx, ch, saved)
	return saved, nil
}

func (s *ChatService) updateIndex(ctx context.Context, ch chat.Channel, m model.Message) {
	if s.index == nil {
		return
	}
	shopID, ok := s.resolveShop(ctx, ch)
	if !ok {
		return
	}
	err := s.index.Upsert(ctx, shopID, model.ConversationEntry{
		Channel:         ch.Raw,
		Kind:            ch.Kind,
		LastTimestamp:   m.Timestamp,
		LastBody:        m.Body,
		LastRole:        m.Role,
		LastDisplayName: m.DisplayName,
	})
	if err != nil {
		metrics.IndexUpdateFailures.Inc()
		logger.Errorf("chat index shop=%d channel=%s: %v", shopID, ch.Raw, err)
	}
}

func (s *ChatService) resolveShop(ctx context.Context, ch chat.Channel) (int64, bool) {
	if id, ok := ch.Shop(); ok {
		return id, true
	}
	apptID, ok := ch.Appointment()
	if !ok || s.shops == nil {
		return 0, false
	}
	shopID, found, err := s.shops.ShopForAppointment(ctx, apptID)
	if err != nil {
		metrics.IndexUpdateFailures.Inc()
		logger.Errorf("chat index resolve appointment=%d: %v", apptID, err)
		return 0, false
	}
	return shopID, found
}

// Fetch возвращает канал целиком или только сообщения новее since, плюс время сервера
// для следующего опроса.
func (s *ChatService) Fetch(ctx context.Context, actor *model.Actor, req FetchRequest) (FetchResult, error) {
	if _, err := authorize(actor); err != nil {
		return FetchResult{}, err
	}
	ch, err := chat.Validate(req.Channel)
	if err != nil {
		return FetchResult{}, err
	}
	all, err := s.messages.ReadAll(ctx, ch.Raw)
	if err != nil {
		return FetchResult{}, chat.NewError(chat.CodeInternal, "could not read channel", err)
	}
	out := make([]model.Message, 0, len(all))
	for _, m := range all {
		if req.Since != nil && m.Timestamp <= *req.Since {
			continue
		}
		m.Role = chat.NormalizeRole(m.Role)
		out = append(out, m)
	}
	return FetchResult{Messages: out, ServerTime: s.now().Unix()}, nil
}

// Conversations — индекс переписок салона для его владельца.
func (s *ChatService) Conversations(ctx context.Context, actor *model.Actor, shopID int64) ([]model.ConversationEntry, error) {
	role, err := authorize(actor)
	if err != nil {
		return nil, err
	}
	if role != model.RoleOwner || s.owners == nil || s.index == nil {
		return nil, chat.NewError(chat.CodeForbidden, "conversation list is for shop owners", nil)
	}
	owns, err := s.owners.IsOwner(ctx, shopID, actor.UserID)
	if err != nil {
		return nil, chat.NewError(chat.CodeInternal, "ownership check failed", err)
	}
	if !owns {
		return nil, chat.NewError(chat.CodeForbidden, "not the shop owner", nil)
	}
	list, err := s.index.List(ctx, shopID)
	if err != nil {
		return nil, chat.NewError(chat.CodeInternal, "could not read conversation index", err)
	}
	for i := range list {
		list[i].LastRole = chat.NormalizeRole(list[i].LastRole)
		list[i].Kind = chat.Classify(list[i].Channel)
	}
	return list, nil
}

// EndSession сбрасывает состояние ограничителя завершённой сессии.
func (s *ChatService) EndSession(ctx context.Context, sessionID string) error {
	if s.limiter == nil || sessionID == "" {
		return nil
	}
	return s.limiter.Reset(ctx, sessionID)
}

func limiterKey(actor *model.Actor) string {
	if actor.SessionID != "" {
		return actor.SessionID
	}
	return "u:" + actor.UserID
}

func displayName(name string, role model.Role) string {
	name = strings.TrimSpace(strings.ToValidUTF8(name, ""))
	if name == "" {
		if role == model.RoleOwner {
			return "Owner"
		}
		return "Customer"
	}
	return truncateRunes(name, MaxDisplayNameRunes)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
