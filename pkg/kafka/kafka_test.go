package kafka

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()
	require.False(t, Config{Topic: BorrowRequestsTopic}.Enabled())
	require.True(t, Config{Addrs: []string{"kafka:9092"}, Topic: BorrowRequestsTopic}.Enabled())
}
