package api

import (
	"context"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/repository"
	"github.com/matheus3301/vtexter/internal/view"
	"google.golang.org/grpc"
)

// ChatService implements the chat list and per-chat settings.
type ChatService struct {
	repo   *repository.Repository
	typing *view.Typing
	bus    *bus.Bus
}

// NewChatService creates a new chat service backed by the repository.
func NewChatService(repo *repository.Repository, typing *view.Typing, b *bus.Bus) *ChatService {
	return &ChatService{repo: repo, typing: typing, bus: b}
}

func (s *ChatService) Desc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: ChatServiceName,
		HandlerType: (*Service)(nil),
		Methods: []grpc.MethodDesc{
			unary(ChatServiceName, "ListChats", s.ListChats),
			unary(ChatServiceName, "GetChat", s.GetChat),
			unary(ChatServiceName, "OpenChat", s.OpenChat),
			unary(ChatServiceName, "SetFlag", s.SetFlag),
			unary(ChatServiceName, "MarkRead", s.MarkRead),
			unary(ChatServiceName, "ClearChat", s.ClearChat),
			unary(ChatServiceName, "SetTyping", s.SetTyping),
			unary(ChatServiceName, "ListMedia", s.ListMedia),
		},
		Streams: []grpc.StreamDesc{
			stream("WatchChats", s.WatchChats),
		},
		Metadata: "vtexter/v1/chat.proto",
	}
}

func (s *ChatService) ListChats(ctx context.Context, req *ChatListRequest) (*ChatListResponse, error) {
	var (
		chats []model.Chat
		err   error
	)
	if req.Archived {
		chats, err = s.repo.ListArchivedChats(ctx)
	} else {
		chats, err = s.repo.ListChats(ctx)
	}
	if err != nil {
		return nil, err
	}
	resp := &ChatListResponse{Chats: make([]model.Chat, 0, len(chats))}
	for _, c := range chats {
		c.IsTyping = s.typing.Is(c.ChatID)
		resp.Chats = append(resp.Chats, c)
		resp.TotalUnread += c.UnreadCount
	}
	return resp, nil
}

// WatchChats streams the chat list until the client goes away.
func (s *ChatService) WatchChats(ctx context.Context, req *ChatListRequest, send func(*ChatListResponse) error) error {
	states, err := view.WatchChatList(ctx, s.repo, s.typing, s.bus, req.Archived)
	if err != nil {
		return err
	}
	for st := range states {
		if err := send(chatListResponse(st)); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChatService) GetChat(ctx context.Context, req *ChatRequest) (*model.Chat, error) {
	c, err := s.repo.GetChatByID(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("chat", req.ChatID)
	}
	c.IsTyping = s.typing.Is(c.ChatID)
	return c, nil
}

func (s *ChatService) OpenChat(ctx context.Context, req *OpenChatRequest) (*ChatResponse, error) {
	if req.UserID == "" {
		return nil, invalid("userId is required")
	}
	if me, ok := s.repo.CurrentUser(); ok && me.UserID == req.UserID {
		return nil, invalid("cannot open a chat with yourself")
	}
	id, err := s.repo.CreateOrGetChat(ctx, req.UserID, req.Name)
	if err != nil {
		return nil, err
	}
	return &ChatResponse{ChatID: id}, nil
}

func (s *ChatService) SetFlag(ctx context.Context, req *FlagRequest) (*Empty, error) {
	var err error
	switch req.Flag {
	case FlagPinned:
		err = s.repo.SetPinned(ctx, req.ChatID, req.On)
	case FlagArchived:
		err = s.repo.SetArchived(ctx, req.ChatID, req.On)
	case FlagMuted:
		err = s.repo.SetMuted(ctx, req.ChatID, req.On)
	default:
		return nil, invalid("unknown flag %q", req.Flag)
	}
	if err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *ChatService) MarkRead(ctx context.Context, req *ChatRequest) (*Empty, error) {
	me, ok := s.repo.CurrentUser()
	if !ok {
		return nil, repository.ErrNotAuthenticated
	}
	if err := s.repo.MarkMessagesAsRead(ctx, req.ChatID, me.UserID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *ChatService) ClearChat(ctx context.Context, req *ChatRequest) (*CountResponse, error) {
	n, err := s.repo.ClearChat(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}
	return &CountResponse{Count: n}, nil
}

func (s *ChatService) SetTyping(_ context.Context, req *TypingRequest) (*Empty, error) {
	if req.ChatID == "" {
		return nil, invalid("chatId is required")
	}
	s.typing.Set(req.ChatID, req.Typing)
	return &Empty{}, nil
}

func (s *ChatService) ListMedia(ctx context.Context, req *ChatRequest) (*MediaListResponse, error) {
	media, err := s.repo.ListChatMedia(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}
	return &MediaListResponse{Media: media}, nil
}
