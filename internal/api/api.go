// Package api exposes the session over gRPC. Services are described by
// hand and carry google.protobuf.Struct messages; the request and response
// shapes are the Go types in this package, converted through JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matheus3301/vtexter/internal/repository"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service is implemented by every gRPC service of the daemon.
type Service interface {
	Desc() *grpc.ServiceDesc
}

// Register adds services to srv.
func Register(srv *grpc.Server, services ...Service) {
	for _, s := range services {
		srv.RegisterService(s.Desc(), s)
	}
}

// FullMethod returns the gRPC method path of method on service.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Encode converts v to a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode %T: not an object", v)
	}
	return structpb.NewStruct(m)
}

// Decode fills v from s.
func Decode(s *structpb.Struct, v any) error {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}

// unary adapts a typed handler to a gRPC method.
func unary[Req, Resp any](service, name string, fn func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	call := func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
		req := new(Req)
		if err := Decode(in, req); err != nil {
			return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, toStatus(err)
		}
		return Encode(resp)
	}
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{FullMethod: FullMethod(service, name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(ctx, req.(*structpb.Struct))
			})
		},
	}
}

// stream adapts a typed server-streaming handler. fn sends with send until
// it returns.
func stream[Req, Resp any](name string, fn func(context.Context, *Req, func(*Resp) error) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(_ any, ss grpc.ServerStream) error {
			in := new(structpb.Struct)
			if err := ss.RecvMsg(in); err != nil {
				return err
			}
			req := new(Req)
			if err := Decode(in, req); err != nil {
				return grpcstatus.Error(codes.InvalidArgument, err.Error())
			}
			send := func(v *Resp) error {
				out, err := Encode(v)
				if err != nil {
					return err
				}
				return ss.SendMsg(out)
			}
			if err := fn(ss.Context(), req, send); err != nil {
				return toStatus(err)
			}
			return nil
		},
	}
}

// errNotFound marks an absent row at the API boundary.
var errNotFound = errors.New("not found")

func notFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, errNotFound)
}

func invalid(format string, args ...any) error {
	return grpcstatus.Errorf(codes.InvalidArgument, format, args...)
}

// toStatus maps domain errors to gRPC codes.
func toStatus(err error) error {
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, repository.ErrNotAuthenticated):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, repository.ErrEmptyMessage), errors.Is(err, repository.ErrUnknownType),
		errors.Is(err, repository.ErrInvalidUserID):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repository.ErrChatNotFound), errors.Is(err, errNotFound):
		return grpcstatus.Error(codes.NotFound, err.Error())
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}
