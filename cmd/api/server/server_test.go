package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"hospital-account-service/cmd/api/di"
	grpcadapter "hospital-account-service/internal/adapter/grpc"
	"hospital-account-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
)

func localAddr(addr net.Addr) string {
	return fmt.Sprintf("127.0.0.1:%d", addr.(*net.TCPAddr).Port)
}

func listServices(t *testing.T, conn *grpc.ClientConn) []string {
	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(context.Background())
	require.NoError(t, err)
	defer func() { _ = stream.CloseSend() }()

	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	}))
	resp, err := stream.Recv()
	require.NoError(t, err)

	var names []string
	for _, svc := range resp.GetListServicesResponse().GetService() {
		names = append(names, svc.GetName())
	}
	return names
}

func TestServer_RunAndShutdown(t *testing.T) {
	cfg := &config.Config{
		DB: config.DatabaseConfig{Driver: config.DriverMemory},
		App: config.AppConfig{
			GRPCPort:               "0",
			GinPort:                "0",
			ShutdownTimeoutSeconds: 2,
			BcryptCost:             bcrypt.MinCost,
		},
	}
	l := zaptest.NewLogger(t)

	c, err := di.NewContainer(context.Background(), cfg, l)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	srv := New(cfg, l, c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}

	resp, err := http.Get("http://" + localAddr(srv.GinAddr()) + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, err := grpc.NewClient(localAddr(srv.GRPCAddr()),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Invoke(context.Background(), grpcadapter.FullMethod("LoadUserByUsername"),
		(&grpcadapter.LoadUserRequest{Username: "nobody"}).Proto(), grpcadapter.NewMessage("UserResponse"))
	assert.Equal(t, codes.NotFound, status.Code(err))

	assert.Contains(t, listServices(t, conn), grpcadapter.ServiceName)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
