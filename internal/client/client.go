// Package client is the daemon's gRPC client.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matheus3301/vtexter/internal/api"
	"github.com/matheus3301/vtexter/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call invokes a unary method.
func Call[Resp any](ctx context.Context, c *Client, service, method string, req any) (*Resp, error) {
	in, err := api.Encode(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.FullMethod(service, method), in, out); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := api.Decode(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Watch opens a server stream and calls fn for every message until the
// stream ends, fn returns an error or ctx is done.
func Watch[Resp any](ctx context.Context, c *Client, service, method string, req any, fn func(*Resp) error) error {
	in, err := api.Encode(req)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}
	st, err := c.conn.NewStream(ctx, desc, api.FullMethod(service, method))
	if err != nil {
		return err
	}
	if err := st.SendMsg(in); err != nil {
		return err
	}
	if err := st.CloseSend(); err != nil {
		return err
	}
	for {
		out := new(structpb.Struct)
		if err := st.RecvMsg(out); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		resp := new(Resp)
		if err := api.Decode(out, resp); err != nil {
			return err
		}
		if err := fn(resp); err != nil {
			return err
		}
	}
}

// Status returns the session status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	return Call[api.StatusResponse](ctx, c, api.SessionServiceName, "GetStatus", api.Empty{})
}

// SignIn signs the session in.
func (c *Client) SignIn(ctx context.Context, req api.SignInRequest) (*model.User, error) {
	return Call[model.User](ctx, c, api.SessionServiceName, "SignIn", req)
}

// SignOut signs the session out.
func (c *Client) SignOut(ctx context.Context) error {
	_, err := Call[api.Empty](ctx, c, api.SessionServiceName, "SignOut", api.Empty{})
	return err
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	return Call[model.User](ctx, c, api.SessionServiceName, "GetProfile", api.Empty{})
}

// SetProfilePicture stores the picture at path, which must be readable by
// the daemon.
func (c *Client) SetProfilePicture(ctx context.Context, path string) (string, error) {
	resp, err := Call[api.PathResponse](ctx, c, api.SessionServiceName, "SetProfilePicture", api.PathRequest{Path: path})
	if err != nil {
		return "", err
	}
	return resp.Path, nil
}

// Storage reports media storage usage.
func (c *Client) Storage(ctx context.Context) (*api.StorageResponse, error) {
	return Call[api.StorageResponse](ctx, c, api.SessionServiceName, "GetStorage", api.Empty{})
}

// ClearStorage deletes every stored media file.
func (c *Client) ClearStorage(ctx context.Context) error {
	_, err := Call[api.Empty](ctx, c, api.SessionServiceName, "ClearStorage", api.Empty{})
	return err
}

// Chats lists the active or archived chats.
func (c *Client) Chats(ctx context.Context, archived bool) (*api.ChatListResponse, error) {
	return Call[api.ChatListResponse](ctx, c, api.ChatServiceName, "ListChats", api.ChatListRequest{Archived: archived})
}

// OpenChat returns the id of the chat with userID, creating it if needed.
func (c *Client) OpenChat(ctx context.Context, userID, name string) (string, error) {
	resp, err := Call[api.ChatResponse](ctx, c, api.ChatServiceName, "OpenChat", api.OpenChatRequest{UserID: userID, Name: name})
	if err != nil {
		return "", err
	}
	return resp.ChatID, nil
}

// SetFlag sets a pinned, archived or muted flag.
func (c *Client) SetFlag(ctx context.Context, chatID, flag string, on bool) error {
	_, err := Call[api.Empty](ctx, c, api.ChatServiceName, "SetFlag", api.FlagRequest{ChatID: chatID, Flag: flag, On: on})
	return err
}

// MarkRead marks a chat as read.
func (c *Client) MarkRead(ctx context.Context, chatID string) error {
	_, err := Call[api.Empty](ctx, c, api.ChatServiceName, "MarkRead", api.ChatRequest{ChatID: chatID})
	return err
}

// ClearChat deletes every message of a chat and returns how many.
func (c *Client) ClearChat(ctx context.Context, chatID string) (int64, error) {
	resp, err := Call[api.CountResponse](ctx, c, api.ChatServiceName, "ClearChat", api.ChatRequest{ChatID: chatID})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// SetTyping sets the typing flag of a chat.
func (c *Client) SetTyping(ctx context.Context, chatID string, typing bool) error {
	_, err := Call[api.Empty](ctx, c, api.ChatServiceName, "SetTyping", api.TypingRequest{ChatID: chatID, Typing: typing})
	return err
}

// Messages lists a chat's thread.
func (c *Client) Messages(ctx context.Context, chatID string) ([]model.Message, error) {
	resp, err := Call[api.MessagesResponse](ctx, c, api.MessageServiceName, "ListMessages", api.ChatRequest{ChatID: chatID})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendText sends a text message.
func (c *Client) SendText(ctx context.Context, chatID, text string) (*model.Message, error) {
	return Call[model.Message](ctx, c, api.MessageServiceName, "SendText", api.SendTextRequest{ChatID: chatID, Text: text})
}

// SendFile sends a media file read by the daemon.
func (c *Client) SendFile(ctx context.Context, req api.SendFileRequest) (*model.Message, error) {
	return Call[model.Message](ctx, c, api.MessageServiceName, "SendFile", req)
}

// DeleteMessage hides a message.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := Call[api.Empty](ctx, c, api.MessageServiceName, "DeleteMessage", api.MessageRequest{MessageID: messageID})
	return err
}

// Contacts lists contacts, filtered by query when not empty.
func (c *Client) Contacts(ctx context.Context, query string) ([]model.Contact, error) {
	resp, err := Call[api.ContactsResponse](ctx, c, api.ContactServiceName, "ListContacts", api.QueryRequest{Query: query})
	if err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

// WatchChats streams the chat list.
func (c *Client) WatchChats(ctx context.Context, archived bool, fn func(*api.ChatListResponse) error) error {
	return Watch(ctx, c, api.ChatServiceName, "WatchChats", api.ChatListRequest{Archived: archived}, fn)
}

// WatchConversation streams an open conversation.
func (c *Client) WatchConversation(ctx context.Context, chatID string, fn func(*api.ConversationResponse) error) error {
	return Watch(ctx, c, api.MessageServiceName, "WatchConversation", api.ChatRequest{ChatID: chatID}, fn)
}

// WatchStatus streams the session status.
func (c *Client) WatchStatus(ctx context.Context, fn func(*api.StatusResponse) error) error {
	return Watch(ctx, c, api.SessionServiceName, "WatchStatus", api.Empty{}, fn)
}
