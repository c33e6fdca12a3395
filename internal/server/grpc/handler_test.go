package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/insubria-survive/survive/internal/campuspb"
	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/insubria-survive/survive/internal/server/auth"
	"github.com/insubria-survive/survive/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var mario = models.User{ID: "u1", Username: "mario", FirstName: "Mario", LastName: "Rossi"}

func TestPing(t *testing.T) {
	env := startEnv(t)

	resp, err := env.client.Ping(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.GetValue())
}

func TestLogin(t *testing.T) {
	env := startEnv(t)
	ctx := context.Background()
	creds := campuspb.EncodeCredentials(campuspb.Credentials{Username: "mario", Password: "secret"})

	env.users.loginResp = &services.LoginResult{
		TokenPair: services.TokenPair{AccessToken: "A1", RefreshToken: "R1"},
		User:      mario,
	}
	resp, err := env.client.Login(ctx, creds)
	require.NoError(t, err)
	res, err := campuspb.DecodeLoginResult(resp)
	require.NoError(t, err)
	assert.Equal(t, mario, res.User)
	assert.Equal(t, "A1", res.AccessToken)
	assert.Equal(t, "R1", res.RefreshToken)

	env.users.loginResp, env.users.loginErr = nil, common.ErrorUnauthorized
	_, err = env.client.Login(ctx, creds)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	env.users.loginErr = errors.New("db down")
	_, err = env.client.Login(ctx, creds)
	assert.Equal(t, codes.Internal, status.Code(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Logins.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Logins.WithLabelValues("denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Logins.WithLabelValues("error")))
}

func TestRefreshToken(t *testing.T) {
	env := startEnv(t)
	ctx := context.Background()

	env.users.refreshResp = &services.TokenPair{AccessToken: "A2", RefreshToken: "R2"}
	resp, err := env.client.RefreshToken(ctx, wrapperspb.String("R1"))
	require.NoError(t, err)
	tokens, err := campuspb.DecodeTokens(resp)
	require.NoError(t, err)
	assert.Equal(t, campuspb.Tokens{AccessToken: "A2", RefreshToken: "R2"}, tokens)

	env.users.refreshResp, env.users.refreshErr = nil, common.ErrRefreshTokenExpired
	_, err = env.client.RefreshToken(ctx, wrapperspb.String("R1"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	env.users.refreshErr = errors.New("db down")
	_, err = env.client.RefreshToken(ctx, wrapperspb.String("R1"))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLogout(t *testing.T) {
	env := startEnv(t)

	_, err := env.client.Logout(context.Background(), wrapperspb.String("R1"))
	require.NoError(t, err)
	assert.Equal(t, "R1", env.users.lastLogout)

	env.users.logoutErr = errors.New("db down")
	_, err = env.client.Logout(context.Background(), wrapperspb.String("R1"))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func authorized(t *testing.T) context.Context {
	t.Helper()
	token, err := auth.GenerateToken("u1", "mario", []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}

func TestPutDocument(t *testing.T) {
	env := startEnv(t)

	req, err := campuspb.EncodePutDocument(campuspb.PutDocumentRequest{Collection: common.CollectionExams, Document: exam("E1", "Analisi")})
	require.NoError(t, err)

	_, err = env.client.PutDocument(context.Background(), req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "anonymous writes are rejected")

	_, err = env.client.PutDocument(authorized(t), req)
	require.NoError(t, err)
	require.Len(t, env.docs.stored, 1)
	assert.Equal(t, "E1", env.docs.stored[0].ID)
	assert.Equal(t, "u1", env.docs.userID)

	_, err = env.client.PutDocument(authorized(t), wrapperspb.Bytes([]byte("garbage")))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	env.docs.err = common.ErrorInvalidDocument
	_, err = env.client.PutDocument(authorized(t), req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	env.docs.err = errors.New("db down")
	_, err = env.client.PutDocument(authorized(t), req)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func recvSnapshot(t *testing.T, stream interface {
	Recv() (*wrapperspb.BytesValue, error)
}) models.Snapshot {
	t.Helper()
	msg, err := stream.Recv()
	require.NoError(t, err)
	snap, err := campuspb.DecodeSnapshot(msg)
	require.NoError(t, err)
	return snap
}

func TestSubscribe_StreamsCurrentAndLaterSnapshots(t *testing.T) {
	env := startEnv(t)
	env.loader.set(common.CollectionExams, exam("E1", "Analisi"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := env.client.Subscribe(ctx, wrapperspb.String(common.CollectionExams))
	require.NoError(t, err)

	first := recvSnapshot(t, stream)
	assert.Equal(t, common.CollectionExams, first.Collection)
	require.Len(t, first.Documents, 1)

	require.Eventually(t, func() bool { return env.hub.Subscribers(common.CollectionExams) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Subscribers.WithLabelValues(common.CollectionExams)))

	env.loader.set(common.CollectionExams, exam("E1", "Analisi"), exam("E2", "Fisica"))
	require.NoError(t, env.hub.Notify(context.Background(), common.CollectionExams))

	second := recvSnapshot(t, stream)
	require.Len(t, second.Documents, 2)
	assert.Equal(t, "E2", second.Documents[1].ID)

	cancel()
	require.Eventually(t, func() bool { return env.hub.Subscribers(common.CollectionExams) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribe_Errors(t *testing.T) {
	env := startEnv(t)

	stream, err := env.client.Subscribe(context.Background(), wrapperspb.String("aule"))
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	env.loader.err = errors.New("db down")
	stream, err = env.client.Subscribe(context.Background(), wrapperspb.String(common.CollectionLessons))
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
