package grpc

import (
	"context"
	"errors"

	"github.com/insubria-survive/survive/internal/campuspb"
	"github.com/insubria-survive/survive/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(result).Inc()
	}
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {

	return wrapperspb.String("OK"), nil

}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	creds := campuspb.DecodeCredentials(req)

	result, err := s.users.Login(ctx, creds.Username, creds.Password)

	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.countLogin("denied")
			s.logger.Info(ctx, "Login denied", "username", creds.Username)
			return nil, status.Error(codes.Unauthenticated, common.ErrorUnauthorized.Error())
		}
		s.countLogin("error")
		s.logger.Error(ctx, "Login failed", "username", creds.Username, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.countLogin("ok")
	s.logger.Info(ctx, "Logged in", "username", creds.Username)
	return campuspb.EncodeLoginResult(campuspb.LoginResult{
		Tokens: campuspb.Tokens{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken},
		User:   result.User,
	}), nil

}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {

	pair, err := s.users.RefreshToken(ctx, req.GetValue())

	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrRefreshTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		s.logger.Error(ctx, "Refresh failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return campuspb.EncodeTokens(campuspb.Tokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}), nil

}

func (s *GRPCServer) Logout(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {

	if err := s.users.Logout(ctx, req.GetValue()); err != nil {
		s.logger.Error(ctx, "Logout failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &emptypb.Empty{}, nil

}

func (s *GRPCServer) PutDocument(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {

	put, err := campuspb.DecodePutDocument(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.documents.Put(ctx, put.Collection, put.Document); err != nil {
		if errors.Is(err, common.ErrorUnknownCollection) || errors.Is(err, common.ErrorInvalidDocument) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error(ctx, "PutDocument failed", "collection", put.Collection, "id", put.Document.ID, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "Document stored", "collection", put.Collection, "id", put.Document.ID, "user_id", userIDFromContext(ctx))
	return &emptypb.Empty{}, nil

}

// Subscribe streams the current snapshot of the collection and then every
// later one until the client goes away.
func (s *GRPCServer) Subscribe(req *wrapperspb.StringValue, stream grpc.ServerStreamingServer[wrapperspb.BytesValue]) error {

	ctx := stream.Context()
	collection := req.GetValue()

	sub, err := s.hub.Subscribe(ctx, collection)
	if err != nil {
		if errors.Is(err, common.ErrorUnknownCollection) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error(ctx, "Subscribe failed", "collection", collection, "error", err)
		return status.Error(codes.Unavailable, "snapshot unavailable")
	}
	defer s.hub.Unsubscribe(sub)

	s.logger.Info(ctx, "Subscriber attached", "collection", collection)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "Subscriber detached", "collection", collection)
			return nil
		case snap := <-sub.Snapshots():
			msg, err := campuspb.EncodeSnapshot(snap)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}

}
