package api

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/repository"
	"github.com/matheus3301/vtexter/internal/status"
	"google.golang.org/grpc"
)

// SessionService reports the session state and manages the identity.
type SessionService struct {
	sessionName string
	remote      string
	startedAt   time.Time
	machine     *status.Machine
	repo        *repository.Repository
	bus         *bus.Bus
}

// NewSessionService creates a new session service. remote names the
// directory backend for status output.
func NewSessionService(sessionName, remote string, machine *status.Machine, repo *repository.Repository, b *bus.Bus) *SessionService {
	return &SessionService{
		sessionName: sessionName,
		remote:      remote,
		startedAt:   time.Now(),
		machine:     machine,
		repo:        repo,
		bus:         b,
	}
}

func (s *SessionService) Desc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: SessionServiceName,
		HandlerType: (*Service)(nil),
		Methods: []grpc.MethodDesc{
			unary(SessionServiceName, "GetStatus", s.GetStatus),
			unary(SessionServiceName, "SignIn", s.SignIn),
			unary(SessionServiceName, "SignOut", s.SignOut),
			unary(SessionServiceName, "GetProfile", s.GetProfile),
			unary(SessionServiceName, "SetProfilePicture", s.SetProfilePicture),
			unary(SessionServiceName, "GetStorage", s.GetStorage),
			unary(SessionServiceName, "ClearStorage", s.ClearStorage),
		},
		Streams: []grpc.StreamDesc{
			stream("WatchStatus", s.WatchStatus),
		},
		Metadata: "vtexter/v1/session.proto",
	}
}

func (s *SessionService) GetStatus(ctx context.Context, _ *Empty) (*StatusResponse, error) {
	h := s.machine.Health()
	resp := &StatusResponse{
		Session:   s.sessionName,
		State:     string(h.State),
		SinceMs:   h.Since.UnixMilli(),
		LastError: h.LastError,
		UptimeMs:  time.Since(s.startedAt).Milliseconds(),
		Remote:    s.remote,
	}
	if !h.LastSnapshot.IsZero() {
		resp.LastSnapshotMs = h.LastSnapshot.UnixMilli()
	}
	if me, ok := s.repo.CurrentUser(); ok {
		resp.User = &me
	}
	if counts, err := s.repo.Counts(ctx); err == nil {
		resp.Users = counts.Users
		resp.Chats = counts.Chats
		resp.Messages = counts.Messages
		resp.Media = counts.Media
		resp.Contacts = counts.Contacts
	}
	return resp, nil
}

func (s *SessionService) SignIn(ctx context.Context, req *SignInRequest) (*model.User, error) {
	if req.UserID == "" {
		return nil, invalid("userId is required")
	}
	u, err := s.repo.SignIn(ctx, model.User{
		UserID:      req.UserID,
		Name:        req.Name,
		Email:       req.Email,
		Status:      req.Status,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SessionService) SignOut(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := s.repo.SignOut(ctx); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *SessionService) GetProfile(_ context.Context, _ *Empty) (*model.User, error) {
	me, ok := s.repo.CurrentUser()
	if !ok {
		return nil, repository.ErrNotAuthenticated
	}
	return &me, nil
}

func (s *SessionService) SetProfilePicture(ctx context.Context, req *PathRequest) (*PathResponse, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, invalid("open picture: %v", err)
	}
	defer func() { _ = f.Close() }()
	path, err := s.repo.SaveProfilePicture(ctx, f)
	if err != nil {
		return nil, err
	}
	return &PathResponse{Path: path}, nil
}

func (s *SessionService) GetStorage(ctx context.Context, _ *Empty) (*StorageResponse, error) {
	bytes, err := s.repo.StorageUsage(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StorageResponse{Bytes: bytes}
	counts := map[model.MessageType]*int{
		model.TypeImage:    &resp.Images,
		model.TypeVideo:    &resp.Videos,
		model.TypeAudio:    &resp.Audio,
		model.TypeDocument: &resp.Docs,
	}
	for t, n := range counts {
		media, err := s.repo.ListMediaByType(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("storage %s: %w", t, err)
		}
		*n = len(media)
	}
	return resp, nil
}

func (s *SessionService) ClearStorage(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := s.repo.ClearStorage(ctx); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

// WatchStatus sends the status now and after every state change or
// directory event.
func (s *SessionService) WatchStatus(ctx context.Context, _ *Empty, send func(*StatusResponse) error) error {
	ch, unsub := s.bus.SubscribeMany([]string{"session.", "sync."}, 16)
	defer unsub()

	for {
		resp, err := s.GetStatus(ctx, &Empty{})
		if err != nil {
			return err
		}
		if err := send(resp); err != nil {
			return err
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil
		}
	}
}
