package http

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStartReportsTakenPort(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer taken.Close()

	s := NewServer(nil, WithPort(taken.Addr().(*net.TCPAddr).Port))
	err = s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
