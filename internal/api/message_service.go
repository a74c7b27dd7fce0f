package api

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/repository"
	"github.com/matheus3301/vtexter/internal/view"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// MessageService implements message threads and sending.
type MessageService struct {
	repo   *repository.Repository
	typing *view.Typing
	bus    *bus.Bus
	logger *zap.Logger
}

// NewMessageService creates a new message service backed by the repository.
func NewMessageService(repo *repository.Repository, typing *view.Typing, b *bus.Bus, logger *zap.Logger) *MessageService {
	return &MessageService{repo: repo, typing: typing, bus: b, logger: logger}
}

func (s *MessageService) Desc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: MessageServiceName,
		HandlerType: (*Service)(nil),
		Methods: []grpc.MethodDesc{
			unary(MessageServiceName, "ListMessages", s.ListMessages),
			unary(MessageServiceName, "GetMessage", s.GetMessage),
			unary(MessageServiceName, "GetMedia", s.GetMedia),
			unary(MessageServiceName, "SendText", s.SendText),
			unary(MessageServiceName, "SendFile", s.SendFile),
			unary(MessageServiceName, "Receive", s.Receive),
			unary(MessageServiceName, "MarkDelivered", s.MarkDelivered),
			unary(MessageServiceName, "DeleteMessage", s.DeleteMessage),
		},
		Streams: []grpc.StreamDesc{
			stream("WatchConversation", s.WatchConversation),
		},
		Metadata: "vtexter/v1/message.proto",
	}
}

func (s *MessageService) ListMessages(ctx context.Context, req *ChatRequest) (*MessagesResponse, error) {
	msgs, err := s.repo.ListMessages(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}
	return &MessagesResponse{Messages: msgs}, nil
}

// WatchConversation keeps the chat open for as long as the stream lives.
func (s *MessageService) WatchConversation(ctx context.Context, req *ChatRequest, send func(*ConversationResponse) error) error {
	conv, err := view.OpenConversation(ctx, s.repo, s.typing, s.bus, s.logger, req.ChatID)
	if err != nil {
		return err
	}
	defer conv.Close()
	for st := range conv.States() {
		if err := send(conversationResponse(st)); err != nil {
			return err
		}
	}
	return nil
}

func (s *MessageService) GetMessage(ctx context.Context, req *MessageRequest) (*model.Message, error) {
	m, err := s.repo.GetMessage(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, notFound("message", req.MessageID)
	}
	return m, nil
}

func (s *MessageService) GetMedia(ctx context.Context, req *MessageRequest) (*model.MediaFile, error) {
	m, err := s.repo.GetMediaForMessage(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, notFound("media for message", req.MessageID)
	}
	return m, nil
}

func (s *MessageService) SendText(ctx context.Context, req *SendTextRequest) (*model.Message, error) {
	m, err := s.repo.SendText(ctx, req.ChatID, req.Text)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MessageService) SendFile(ctx context.Context, req *SendFileRequest) (*model.Message, error) {
	kind, err := model.ParseMessageType(strings.ToUpper(req.Kind))
	if err != nil || !kind.IsMedia() {
		return nil, invalid("kind must be IMAGE, VIDEO, DOCUMENT or AUDIO, got %q", req.Kind)
	}
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, invalid("open file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var m model.Message
	switch kind {
	case model.TypeImage:
		m, err = s.repo.SendImage(ctx, req.ChatID, f, req.Caption)
	case model.TypeVideo:
		m, err = s.repo.SendVideo(ctx, req.ChatID, f)
	case model.TypeDocument:
		name := req.FileName
		if name == "" {
			name = filepath.Base(req.Path)
		}
		m, err = s.repo.SendDocument(ctx, req.ChatID, f, name)
	case model.TypeAudio:
		m, err = s.sendAudioCopy(ctx, req.ChatID, f)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// sendAudioCopy sends a copy of src as a voice message. The repository
// consumes the recording it is given, and the caller's file must survive.
func (s *MessageService) sendAudioCopy(ctx context.Context, chatID string, src io.Reader) (model.Message, error) {
	tmp, err := os.CreateTemp("", "vtexter-voice-*.m4a")
	if err != nil {
		return model.Message{}, fmt.Errorf("voice copy: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	_, copyErr := io.Copy(tmp, src)
	if err := tmp.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	if copyErr != nil {
		return model.Message{}, fmt.Errorf("voice copy: %w", copyErr)
	}
	return s.repo.SendVoice(ctx, chatID, tmp.Name(), 0)
}

// Receive stores a message delivered by the other side of a chat.
func (s *MessageService) Receive(ctx context.Context, req *model.Message) (*model.Message, error) {
	if req.Type == "" {
		req.Type = model.TypeText
	}
	m, err := s.repo.ReceiveMessage(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MessageService) MarkDelivered(ctx context.Context, req *MessageRequest) (*Empty, error) {
	if err := s.repo.MarkDelivered(ctx, req.MessageID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *MessageService) DeleteMessage(ctx context.Context, req *MessageRequest) (*Empty, error) {
	if err := s.repo.DeleteMessage(ctx, req.MessageID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}
