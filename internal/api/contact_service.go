package api

import (
	"context"

	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/repository"
	"google.golang.org/grpc"
)

// ContactService implements the address book and the user directory.
type ContactService struct {
	repo *repository.Repository
}

// NewContactService creates a new contact service.
func NewContactService(repo *repository.Repository) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) Desc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: ContactServiceName,
		HandlerType: (*Service)(nil),
		Methods: []grpc.MethodDesc{
			unary(ContactServiceName, "ListContacts", s.ListContacts),
			unary(ContactServiceName, "GetContact", s.GetContact),
			unary(ContactServiceName, "SaveContact", s.SaveContact),
			unary(ContactServiceName, "DeleteContact", s.DeleteContact),
			unary(ContactServiceName, "ListUsers", s.ListUsers),
		},
		Streams: []grpc.StreamDesc{
			stream("WatchContacts", s.WatchContacts),
		},
		Metadata: "vtexter/v1/contact.proto",
	}
}

func (s *ContactService) ListContacts(ctx context.Context, req *QueryRequest) (*ContactsResponse, error) {
	var (
		contacts []model.Contact
		err      error
	)
	if req.Query == "" {
		contacts, err = s.repo.ListContacts(ctx)
	} else {
		contacts, err = s.repo.SearchContacts(ctx, req.Query)
	}
	if err != nil {
		return nil, err
	}
	return &ContactsResponse{Contacts: contacts}, nil
}

func (s *ContactService) WatchContacts(ctx context.Context, _ *Empty, send func(*ContactsResponse) error) error {
	lists, err := s.repo.WatchContacts(ctx)
	if err != nil {
		return err
	}
	for l := range lists {
		if err := send(&ContactsResponse{Contacts: l}); err != nil {
			return err
		}
	}
	return nil
}

func (s *ContactService) GetContact(ctx context.Context, req *UserRequest) (*model.Contact, error) {
	c, err := s.repo.GetContactByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("contact", req.UserID)
	}
	return c, nil
}

func (s *ContactService) SaveContact(ctx context.Context, req *model.User) (*Empty, error) {
	if req.UserID == "" {
		return nil, invalid("userId is required")
	}
	if err := s.repo.SaveContact(ctx, *req); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *ContactService) DeleteContact(ctx context.Context, req *ContactRequest) (*Empty, error) {
	if err := s.repo.DeleteContact(ctx, req.ContactID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}

func (s *ContactService) ListUsers(ctx context.Context, req *QueryRequest) (*UsersResponse, error) {
	var (
		users []model.User
		err   error
	)
	if req.Query == "" {
		users, err = s.repo.ListUsers(ctx)
	} else {
		users, err = s.repo.SearchUsers(ctx, req.Query)
	}
	if err != nil {
		return nil, err
	}
	return &UsersResponse{Users: users}, nil
}
