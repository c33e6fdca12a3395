// Package grpc serves campus.v1.CampusService: authentication, document
// seeding and the Subscribe snapshot stream.
package grpc

import (
	"context"
	"net"

	"github.com/insubria-survive/survive/internal/campuspb"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/metrics"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/insubria-survive/survive/internal/server/hub"
	"github.com/insubria-survive/survive/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is what the handlers need from services.UserService.
type UserService interface {
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// DocumentService is what the handlers need from services.DocumentService.
type DocumentService interface {
	Put(ctx context.Context, collection string, doc models.Document) error
}

// SnapshotHub is what Subscribe needs from hub.Hub.
type SnapshotHub interface {
	Subscribe(ctx context.Context, collection string) (*hub.Subscriber, error)
	Unsubscribe(s *hub.Subscriber)
}

type GRPCServer struct {
	campuspb.UnimplementedCampusServiceServer
	address   string
	users     UserService
	documents DocumentService
	hub       SnapshotHub
	metrics   *metrics.Server
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, us UserService, ds DocumentService, h SnapshotHub, m *metrics.Server, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		documents: ds,
		hub:       h,
		metrics:   m,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	campuspb.RegisterCampusServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
