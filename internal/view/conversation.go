package view

import (
	"context"
	"sync"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/repository"
	"go.uber.org/zap"
)

// ConversationState is what an open conversation shows.
type ConversationState struct {
	Chat     model.Chat
	Messages []model.Message
	Online   bool
	LastSeen int64
	Typing   bool
}

// Conversation observes one chat while it is open. Opening marks the
// chat's inbound messages as read and suppresses unread counting for it
// until Close.
type Conversation struct {
	repo   *repository.Repository
	typing *Typing
	logger *zap.Logger
	chatID string

	states chan ConversationState
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// OpenConversation starts observing chatID. It returns
// repository.ErrChatNotFound when the chat does not exist.
func OpenConversation(ctx context.Context, repo *repository.Repository, typing *Typing, b *bus.Bus, logger *zap.Logger, chatID string) (*Conversation, error) {
	chat, err := repo.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, repository.ErrChatNotFound
	}

	ctx, cancel := context.WithCancel(ctx)
	header, unsub := b.SubscribeMany([]string{bus.KindChats, bus.KindUsers, bus.KindTyping}, 1)
	messages, err := repo.WatchMessages(ctx, chatID)
	if err != nil {
		unsub()
		cancel()
		return nil, err
	}

	c := &Conversation{
		repo:   repo,
		typing: typing,
		logger: logger,
		chatID: chatID,
		states: make(chan ConversationState, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	repo.SetReading(chatID, true)
	if me, ok := repo.CurrentUser(); ok {
		if err := repo.MarkMessagesAsRead(ctx, chatID, me.UserID); err != nil {
			logger.Warn("failed to mark conversation read", zap.String("chat_id", chatID), zap.Error(err))
		}
	}

	go func() {
		defer close(c.done)
		defer close(c.states)
		defer unsub()
		c.loop(ctx, *chat, messages, header)
	}()
	return c, nil
}

func (c *Conversation) loop(ctx context.Context, chat model.Chat, messages <-chan []model.Message, header <-chan bus.Event) {
	state := ConversationState{Chat: chat}
	c.loadHeader(ctx, &state)
	haveMessages := false
	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-messages:
			if !ok {
				return
			}
			state.Messages = list
			haveMessages = true
		case <-header:
			c.loadHeader(ctx, &state)
			if !haveMessages {
				continue
			}
		}
		if !offer(ctx, c.states, state) {
			return
		}
	}
}

// loadHeader refreshes everything except the messages. A failed load keeps
// the previous values.
func (c *Conversation) loadHeader(ctx context.Context, s *ConversationState) {
	chat, err := c.repo.GetChatByID(ctx, c.chatID)
	if err != nil {
		c.logger.Warn("conversation chat reload failed", zap.String("chat_id", c.chatID), zap.Error(err))
	} else if chat != nil {
		s.Chat = *chat
	}
	other, err := c.repo.GetUserByID(ctx, s.Chat.OtherUserID)
	if err != nil {
		c.logger.Warn("conversation user reload failed", zap.String("chat_id", c.chatID), zap.Error(err))
	} else if other != nil {
		s.Online = other.IsOnline
		s.LastSeen = other.LastSeen
	}
	s.Typing = c.typing.Is(c.chatID)
	s.Chat.IsTyping = s.Typing
}

// ChatID returns the observed chat.
func (c *Conversation) ChatID() string { return c.chatID }

// States emits the conversation after every change. It is closed by Close.
func (c *Conversation) States() <-chan ConversationState { return c.states }

// Close stops observing and lets the chat count unread messages again.
func (c *Conversation) Close() {
	c.once.Do(func() {
		c.cancel()
		<-c.done
		c.repo.SetReading(c.chatID, false)
	})
}
