package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/campusrecords/campus-auth/internal/application"
	"github.com/campusrecords/campus-auth/internal/domain"
)

const serviceName = "campusrecords.auth.v1.AuthInternalService"

// AuthInternalService is the contract the records CRUD services call to
// resolve bearer tokens without holding the signing secrets.
type AuthInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccountIdentity(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type AuthInternalServer struct {
	service *application.Service
}

func NewAuthInternalServer(service *application.Service) *AuthInternalServer {
	return &AuthInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc AuthInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AuthInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    unaryHandler("ValidateToken", svc.ValidateToken),
			},
			{
				MethodName: "GetAccountIdentity",
				Handler:    unaryHandler("GetAccountIdentity", svc.GetAccountIdentity),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "campusrecords/auth/v1/auth_internal.proto",
	}, svc)
}

func (s *AuthInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(req, "token")
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	validation, err := s.service.ValidateToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return nil, status.Error(codes.Unavailable, "token validation unavailable")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"account_id": validation.Principal.AccountID.String(),
		"role":       validation.Principal.Role.String(),
		"expires_at": validation.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *AuthInternalServer) GetAccountIdentity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID, err := uuid.Parse(stringField(req, "account_id"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid account_id")
	}

	identity, err := s.service.GetIdentity(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "account not found")
		}
		return nil, status.Error(codes.Unavailable, "identity lookup unavailable")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"account_id": identity.AccountID.String(),
		"email":      identity.Email,
		"role":       identity.Role,
		"status":     identity.Status,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func stringField(req *structpb.Struct, key string) string {
	v := req.GetFields()[key]
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

type unaryMethod func(context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, fn unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return fn(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
