package view

import (
	"context"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/repository"
)

// ChatListState is what the chat list screen shows.
type ChatListState struct {
	Chats       []model.Chat
	TotalUnread int
}

// WatchChatList emits the chat list (or the archived list) with typing
// flags merged in, after every chat change and every typing change.
// The channel is closed when ctx is done.
func WatchChatList(ctx context.Context, repo *repository.Repository, typing *Typing, b *bus.Bus, archived bool) (<-chan ChatListState, error) {
	typingEvents, unsub := b.Subscribe(bus.KindTyping, 1)

	var (
		chats <-chan []model.Chat
		err   error
	)
	if archived {
		chats, err = repo.WatchArchivedChats(ctx)
	} else {
		chats, err = repo.WatchChats(ctx)
	}
	if err != nil {
		unsub()
		return nil, err
	}

	out := make(chan ChatListState, 1)
	go func() {
		defer close(out)
		defer unsub()
		var last []model.Chat
		for {
			select {
			case <-ctx.Done():
				return
			case list, ok := <-chats:
				if !ok {
					return
				}
				last = list
			case <-typingEvents:
				if last == nil {
					continue
				}
			}
			if !offer(ctx, out, chatListState(last, typing)) {
				return
			}
		}
	}()
	return out, nil
}

func chatListState(chats []model.Chat, typing *Typing) ChatListState {
	s := ChatListState{Chats: make([]model.Chat, len(chats))}
	for i, c := range chats {
		c.IsTyping = typing.Is(c.ChatID)
		s.Chats[i] = c
		s.TotalUnread += c.UnreadCount
	}
	return s
}
