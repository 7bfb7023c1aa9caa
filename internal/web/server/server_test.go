package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig(okHandler())

	assert.Equal(t, ":8080", config.Address)
	assert.Equal(t, 30*time.Second, config.WriteTimeout)
	assert.Equal(t, 10*time.Second, config.ShutdownTimeout)
	assert.Equal(t, 1<<20, config.MaxHeaderBytes)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	_, err = New(&Config{Address: ":0"}, nil)
	assert.Error(t, err)

	srv, err := New(DefaultConfig(okHandler()), nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", srv.Addr())
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"
	config.ShutdownTimeout = time.Second

	core, logs := observer.New(zapcore.InfoLevel)
	srv, err := New(config, zap.New(core))
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	var order []string
	srv.RegisterHook(func(ctx context.Context) error {
		order = append(order, "first")
		return errors.New("close failed")
	})
	srv.RegisterHook(func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/", srv.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, logs.FilterMessage("shutdown hook failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("server stopped").Len())
}

func TestRun_ListenFailure(t *testing.T) {
	first, err := New(&Config{Address: "127.0.0.1:0", Handler: okHandler()}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Listen())
	defer first.Close()

	second, err := New(&Config{Address: first.Addr(), Handler: okHandler()}, nil)
	require.NoError(t, err)

	err = second.Run(context.Background())
	assert.Error(t, err)
}
