package seed

import (
	"context"
	"testing"

	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/db/dbtest"
	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	conn := dbtest.Open(t)
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	opts := Options{Users: 3, ImagesPerUser: 2}
	require.NoError(t, Seed(ctx, conn, store, opts))

	admin, err := imgdata.FetchUserByUsername(ctx, conn, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	_, err = imgdata.Authenticate(ctx, conn, "alice", Password, "")
	assert.NoError(t, err)

	banned, err := imgdata.IsBanned(ctx, conn, SpammerIP)
	require.NoError(t, err)
	assert.True(t, banned)

	numImages, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM images")
	require.NoError(t, err)
	assert.Equal(t, 6, numImages)

	// Running again keeps the accounts and adds images
	require.NoError(t, Seed(ctx, conn, store, opts))
	numUsers, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	assert.Equal(t, 5, numUsers)
	numImages, err = db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM images")
	require.NoError(t, err)
	assert.Equal(t, 12, numImages)
}

func TestRandomPNGIsAcceptedImage(t *testing.T) {
	info, err := imgdata.SniffImage(randomPNG(70, 90))
	require.NoError(t, err)
	assert.Equal(t, 70, info.Width)
	assert.Equal(t, 90, info.Height)
}
