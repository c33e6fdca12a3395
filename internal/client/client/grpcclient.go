package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/insubria-survive/survive/internal/campuspb"
	"github.com/insubria-survive/survive/internal/client/remote"
	"github.com/insubria-survive/survive/internal/client/session"
	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DefaultReconnectDelay is the pause before re-opening a broken stream.
const DefaultReconnectDelay = 2 * time.Second

type GRPCClient struct {
	endpointURL    string
	conn           *grpc.ClientConn
	client         campuspb.CampusServiceClient
	session        *session.Session
	logger         logging.Logger
	reconnectDelay time.Duration
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	err := invoker(withAccessToken(ctx, s.session.AccessToken()), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	if err := s.refresh(ctx); err != nil {
		return err
	}

	return invoker(withAccessToken(ctx, s.session.AccessToken()), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.session.AccessToken()), desc, cc, method, opts...)
}

// refresh trades the session refresh token for a new pair. The session
// keeps the new tokens only if the same user is still logged in.
func (s *GRPCClient) refresh(ctx context.Context) error {
	refreshToken := s.session.RefreshToken()
	if refreshToken == "" {
		return ErrUnauthorized
	}

	resp, err := s.client.RefreshToken(ctx, wrapperspb.String(refreshToken))
	if err != nil {
		return s.mapError(err)
	}

	tokens, err := campuspb.DecodeTokens(resp)
	if err != nil {
		return err
	}

	s.session.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	s.logger.Debug(ctx, "access token refreshed")
	return nil
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults.
func NewGRPCClient(endpointURL string, sess *session.Session, l logging.Logger, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{
		endpointURL:    endpointURL,
		session:        sess,
		logger:         l.With("module", "grpc_client"),
		reconnectDelay: DefaultReconnectDelay,
	}
	if err := c.initGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) initGRPCClient(opts ...grpc.DialOption) error {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, dialOpts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = campuspb.NewCampusServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// Login verifies credentials on the server. It does not touch the
// session; that is the caller's decision.
func (s *GRPCClient) Login(ctx context.Context, username, password string) (models.User, session.Tokens, error) {
	req := campuspb.EncodeCredentials(campuspb.Credentials{Username: username, Password: password})

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return models.User{}, session.Tokens{}, s.mapError(err)
	}

	res, err := campuspb.DecodeLoginResult(resp)
	if err != nil {
		return models.User{}, session.Tokens{}, err
	}

	return res.User, session.Tokens{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
}

// Logout revokes refreshToken on the server.
func (s *GRPCClient) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, err := s.client.Logout(ctx, wrapperspb.String(refreshToken))
	return s.mapError(err)
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.GetValue() != "OK" {
		return ErrUnavailable
	}

	return nil
}

// PutDocument stores doc in collection on the server. Requires a logged
// in session.
func (s *GRPCClient) PutDocument(ctx context.Context, collection string, doc models.Document) error {
	req, err := campuspb.EncodePutDocument(campuspb.PutDocumentRequest{Collection: collection, Document: doc})
	if err != nil {
		return err
	}
	_, err = s.client.PutDocument(ctx, req)
	return s.mapError(err)
}

// Subscribe opens a server stream for collection. A broken stream is
// reported on the error channel and re-opened after reconnectDelay until
// the subscription is closed.
func (s *GRPCClient) Subscribe(ctx context.Context, collection string) (*remote.Subscription, error) {
	if !common.IsKnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", common.ErrorUnknownCollection, collection)
	}

	return remote.Start(ctx, collection, func(ctx context.Context, emit remote.Emitter) {
		for {
			err := s.stream(ctx, collection, emit)
			if ctx.Err() != nil {
				return
			}
			if !emit.Error(ctx, fmt.Errorf("subscription %s interrupted: %w", collection, err)) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectDelay):
			}
		}
	}), nil
}

// stream pumps one Subscribe stream until it fails.
func (s *GRPCClient) stream(ctx context.Context, collection string, emit remote.Emitter) error {
	stream, err := s.client.Subscribe(ctx, wrapperspb.String(collection))
	if err != nil {
		return s.mapError(err)
	}

	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return errors.New("stream closed by server")
		}
		if err != nil {
			return s.mapError(err)
		}

		snap, err := campuspb.DecodeSnapshot(msg)
		if err != nil {
			if !emit.Error(ctx, err) {
				return ctx.Err()
			}
			continue
		}
		if !emit.Snapshot(ctx, snap) {
			return ctx.Err()
		}
	}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return fmt.Errorf("%s: %w", st.Message(), common.ErrorNotFound)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
