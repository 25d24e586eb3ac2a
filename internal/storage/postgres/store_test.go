package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gnobounty/internal/model"
)

func TestNumericText(t *testing.T) {
	assert.Equal(t, "1000000", numericText("1000000"))
	assert.Equal(t, "0", numericText(""))
	assert.Equal(t, "0", numericText("12ugnot"))
}

func TestNewStoreValidates(t *testing.T) {
	_, err := NewStore(context.Background(), "", "gno.land/r/x")
	assert.Error(t, err)
	_, err = NewStore(context.Background(), "postgres://localhost/db", "")
	assert.Error(t, err)
}

// TestStoreRoundTrip runs against a live database when GNOBOUNTY_TEST_PG_DSN is set.
func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("GNOBOUNTY_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("GNOBOUNTY_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	realm := "gno.land/r/test/" + time.Now().UTC().Format("20060102150405.000000000")

	s, err := NewStore(ctx, dsn, realm)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	require.NoError(t, s.PutBounties(ctx, []model.Bounty{{ID: "1", Title: "a", Amount: "1000000"}}))
	require.NoError(t, s.PutBounties(ctx, []model.Bounty{{ID: "1", Title: "renamed", Amount: "5"}}))
	require.NoError(t, s.PutApplications(ctx, []model.Application{{ID: "2", BountyID: "1", Status: model.StatusRejected}}))
	require.NoError(t, s.PutLeaderboard(ctx, time.Now(), []model.LeaderboardEntry{{Address: "g1xyz", Score: 20}}))

	var title, amount string
	require.NoError(t, s.pool.QueryRow(ctx,
		`SELECT title, amount::text FROM bounties WHERE realm = $1 AND id = 1`, realm).Scan(&title, &amount))
	assert.Equal(t, "renamed", title)
	assert.Equal(t, "5", amount)

	var status string
	require.NoError(t, s.pool.QueryRow(ctx,
		`SELECT status FROM applications WHERE realm = $1 AND id = 2`, realm).Scan(&status))
	assert.Equal(t, "Rejected", status)
}
