package imgdata

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/snapwall/snapwall/src/auth"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/db/dbtest"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wraps a real store so tests can make operations fail.
type flakyStore struct {
	storage.Store

	mu         sync.Mutex
	failPut    bool
	failDelete bool
	deleted    []string
}

func (s *flakyStore) Put(ctx context.Context, name string, content []byte, contentType string) error {
	if s.failPut {
		return errors.New("put failed")
	}
	return s.Store.Put(ctx, name, content, contentType)
}

func (s *flakyStore) Delete(ctx context.Context, name string) error {
	if s.failDelete {
		return errors.New("delete failed")
	}
	s.mu.Lock()
	s.deleted = append(s.deleted, name)
	s.mu.Unlock()
	return s.Store.Delete(ctx, name)
}

func newStore(t *testing.T) *flakyStore {
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	return &flakyStore{Store: local}
}

func TestUsers(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	_, err := CreateUser(ctx, conn, "  ", "pw", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = CreateUser(ctx, conn, "bob", "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	bob, err := CreateUser(ctx, conn, " bob ", "pw", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "bob", bob.Username)
	assert.Equal(t, "10.0.0.1", bob.LastIPString())
	assert.False(t, bob.IsAdmin)
	assert.True(t, auth.CheckPasswordString("pw", bob.Password))

	_, err = CreateUser(ctx, conn, "bob", "other", "")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	t.Run("bad login changes nothing", func(t *testing.T) {
		_, err := Authenticate(ctx, conn, "bob", "wrong", "10.0.0.2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = Authenticate(ctx, conn, "nobody", "pw", "10.0.0.2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		fetched, err := FetchUser(ctx, conn, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1", fetched.LastIPString())
	})
	t.Run("good login records ip", func(t *testing.T) {
		user, err := Authenticate(ctx, conn, "bob", "pw", "10.0.0.3")
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.3", user.LastIPString())

		fetched, err := FetchUser(ctx, conn, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.3", fetched.LastIPString())
	})
	t.Run("admin and password", func(t *testing.T) {
		require.NoError(t, SetAdmin(ctx, conn, "bob", true))
		fetched, err := FetchUserByUsername(ctx, conn, "bob")
		require.NoError(t, err)
		assert.True(t, fetched.IsAdmin)
		assert.ErrorIs(t, SetAdmin(ctx, conn, "nobody", true), ErrUserNotFound)

		require.NoError(t, SetPassword(ctx, conn, "bob", "new pw"))
		_, err = Authenticate(ctx, conn, "bob", "new pw", "")
		assert.NoError(t, err)
	})

	_, err = FetchUser(ctx, conn, 999999)
	assert.ErrorIs(t, err, db.NotFound)
}

func TestConcurrentRegistration(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = CreateUser(ctx, conn, "racer", "pw", "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateUsername)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestImages(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	store := newStore(t)

	alice, err := CreateUser(ctx, conn, "alice", "pw", "")
	require.NoError(t, err)
	bob, err := CreateUser(ctx, conn, "bob", "pw", "")
	require.NoError(t, err)

	t.Run("validation", func(t *testing.T) {
		_, err := CreateImage(ctx, conn, store, alice.ID, UploadInput{})
		assert.ErrorIs(t, err, ErrMissingFile)
		_, err = CreateImage(ctx, conn, store, alice.ID, UploadInput{Filename: "x.gif", Content: makePNG(t, 1, 1)})
		assert.ErrorIs(t, err, ErrUnsupportedType)
		_, err = CreateImage(ctx, conn, store, alice.ID, UploadInput{Filename: "x.png", Content: []byte("nope")})
		assert.ErrorIs(t, err, ErrUnsupportedType)
		_, err = CreateImage(ctx, conn, store, alice.ID, UploadInput{Filename: "x.png", Content: makePNG(t, 1, 1), HideLocation: true})
		assert.ErrorIs(t, err, ErrMissingPassword)

		n, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM images")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	first, err := CreateImage(ctx, conn, store, alice.ID, UploadInput{
		Filename:    "Beach Day.PNG",
		Content:     makePNG(t, 4, 3),
		Description: "sand",
		Location:    "Odesa",
	})
	require.NoError(t, err)
	assert.Equal(t, "Beach_Day.PNG", first.OriginalFilename)
	assert.Regexp(t, `^[0-9a-f]{32}\.png$`, first.StoredFilename)
	assert.Equal(t, 4, first.Width)
	assert.Equal(t, 3, first.Height)

	obj, err := store.Fetch(ctx, storage.ObjectName(alice.ID, first.StoredFilename))
	require.NoError(t, err)
	obj.Content.Close()

	hidden, err := CreateImage(ctx, conn, store, alice.ID, UploadInput{
		Filename:         "secret.jpg",
		Content:          makeJPEG(t, 2, 2),
		HideLocation:     true,
		Location:         "Home",
		LocationPassword: "open sesame",
	})
	require.NoError(t, err)
	assert.True(t, hidden.HasPassword())

	t.Run("listing", func(t *testing.T) {
		require.NoError(t, Like(ctx, conn, bob.ID, first.ID))

		listings, err := ListImages(ctx, conn, bob.ID, nil)
		require.NoError(t, err)
		require.Len(t, listings, 2)

		assert.Equal(t, hidden.ID, listings[0].Image.ID, "newest first")
		assert.Nil(t, listings[0].VisibleLocation)
		assert.False(t, listings[0].OwnedByViewer)

		assert.Equal(t, first.ID, listings[1].Image.ID)
		assert.Equal(t, "alice", listings[1].OwnerUsername)
		assert.Equal(t, 1, listings[1].LikesCount)
		assert.True(t, listings[1].LikedByViewer)
		if assert.NotNil(t, listings[1].VisibleLocation) {
			assert.Equal(t, "Odesa", *listings[1].VisibleLocation)
		}

		ownerView, err := ListImages(ctx, conn, alice.ID, nil)
		require.NoError(t, err)
		assert.NotNil(t, ownerView[0].VisibleLocation)
		assert.False(t, ownerView[1].LikedByViewer)
	})

	t.Run("unlock", func(t *testing.T) {
		sess, err := auth.CreateSession(ctx, conn, bob.ID)
		require.NoError(t, err)

		assert.ErrorIs(t, UnlockLocation(ctx, conn, sess, hidden.ID, "wrong"), ErrWrongPassword)
		assert.ErrorIs(t, UnlockLocation(ctx, conn, sess, first.ID, ""), ErrWrongPassword)
		assert.ErrorIs(t, UnlockLocation(ctx, conn, sess, 999999, "x"), ErrWrongPassword)
		require.NoError(t, UnlockLocation(ctx, conn, sess, hidden.ID, "open sesame"))

		listings, err := ListImages(ctx, conn, bob.ID, sess)
		require.NoError(t, err)
		if assert.NotNil(t, listings[0].VisibleLocation) {
			assert.Equal(t, "Home", *listings[0].VisibleLocation)
		}

		// Unlocking lives in the session, never on the image.
		img, err := FetchImage(ctx, conn, hidden.ID)
		require.NoError(t, err)
		assert.True(t, img.LocationIsHidden)
	})

	t.Run("edit", func(t *testing.T) {
		assert.ErrorIs(t, UpdateImage(ctx, conn, first.ID, bob.ID, EditInput{}), ErrAccessDenied)
		assert.ErrorIs(t, UpdateImage(ctx, conn, 999999, alice.ID, EditInput{}), ErrAccessDenied)
		assert.ErrorIs(t, UpdateImage(ctx, conn, first.ID, alice.ID, EditInput{HideLocation: true}), ErrMissingPassword)

		// Already hidden: an empty password keeps the old one.
		require.NoError(t, UpdateImage(ctx, conn, hidden.ID, alice.ID, EditInput{
			HideLocation: true,
			Location:     "Elsewhere",
		}))
		img, err := FetchImage(ctx, conn, hidden.ID)
		require.NoError(t, err)
		assert.Equal(t, *hidden.LocationPasswordHash, *img.LocationPasswordHash)
		assert.Equal(t, "Elsewhere", *img.Location)
		assert.Nil(t, img.Description)

		// Unhiding clears the password.
		require.NoError(t, UpdateImage(ctx, conn, hidden.ID, alice.ID, EditInput{Location: "Elsewhere"}))
		img, err = FetchImage(ctx, conn, hidden.ID)
		require.NoError(t, err)
		assert.False(t, img.LocationIsHidden)
		assert.Nil(t, img.LocationPasswordHash)
	})

	t.Run("delete", func(t *testing.T) {
		assert.ErrorIs(t, DeleteImage(ctx, conn, store, first.ID, bob.ID), ErrAccessDenied)

		store.failDelete = true
		assert.ErrorIs(t, DeleteImage(ctx, conn, store, first.ID, alice.ID), ErrDeleteFailed)
		store.failDelete = false
		_, err := FetchImage(ctx, conn, first.ID)
		assert.NoError(t, err, "row must survive a failed object delete")

		require.NoError(t, DeleteImage(ctx, conn, store, first.ID, alice.ID))
		_, err = FetchImage(ctx, conn, first.ID)
		assert.ErrorIs(t, err, db.NotFound)
		_, err = store.Fetch(ctx, storage.ObjectName(alice.ID, first.StoredFilename))
		assert.ErrorIs(t, err, storage.ErrNotFound)

		likes, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM likes WHERE image_id = $1", first.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, likes, "likes cascade with the image")
	})

	t.Run("missing object counts as deleted", func(t *testing.T) {
		require.NoError(t, store.Store.Delete(ctx, storage.ObjectName(alice.ID, hidden.StoredFilename)))
		require.NoError(t, DeleteImage(ctx, conn, store, hidden.ID, alice.ID))
	})
}

func TestUploadCompensation(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	store := newStore(t)

	// No such user, so the insert trips the foreign key after the bytes are stored.
	_, err := CreateImage(ctx, conn, store, 424242, UploadInput{Filename: "a.png", Content: makePNG(t, 1, 1)})
	require.Error(t, err)
	require.Len(t, store.deleted, 1)

	_, err = store.Store.Fetch(ctx, store.deleted[0])
	assert.ErrorIs(t, err, storage.ErrNotFound)

	t.Run("failed put stores no row", func(t *testing.T) {
		user, err := CreateUser(ctx, conn, "carol", "pw", "")
		require.NoError(t, err)

		store.failPut = true
		defer func() { store.failPut = false }()
		_, err = CreateImage(ctx, conn, store, user.ID, UploadInput{Filename: "a.png", Content: makePNG(t, 1, 1)})
		require.Error(t, err)

		n, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM images")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestLikes(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	store := newStore(t)

	user, err := CreateUser(ctx, conn, "liker", "pw", "")
	require.NoError(t, err)
	img, err := CreateImage(ctx, conn, store, user.ID, UploadInput{Filename: "a.png", Content: makePNG(t, 1, 1)})
	require.NoError(t, err)

	assert.ErrorIs(t, Like(ctx, conn, user.ID, 999999), ErrImageNotFound)
	assert.ErrorIs(t, Unlike(ctx, conn, user.ID, img.ID), ErrNotLiked)

	t.Run("concurrent likes count once", func(t *testing.T) {
		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = Like(ctx, conn, user.ID, img.ID)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, ErrAlreadyLiked)
			}
		}
		assert.Equal(t, 1, succeeded)

		count, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM likes")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	require.NoError(t, Unlike(ctx, conn, user.ID, img.ID))
	assert.ErrorIs(t, Unlike(ctx, conn, user.ID, img.ID), ErrNotLiked)
}

func TestBans(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	withIP, err := CreateUser(ctx, conn, "eve", "pw", "203.0.113.7")
	require.NoError(t, err)
	sameIP, err := CreateUser(ctx, conn, "mallory", "pw", "203.0.113.7")
	require.NoError(t, err)
	noIP, err := CreateUser(ctx, conn, "ghost", "pw", "")
	require.NoError(t, err)

	_, err = BanUser(ctx, conn, 999999)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = BanUser(ctx, conn, noIP.ID)
	assert.ErrorIs(t, err, ErrNoIPToBan)

	banned, err := BanUser(ctx, conn, withIP.ID)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", banned.LastIPString())

	_, err = BanUser(ctx, conn, sameIP.ID)
	assert.ErrorIs(t, err, ErrAlreadyBanned)

	isBanned, err := IsBanned(ctx, conn, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, isBanned)

	users, err := ListUsers(ctx, conn, "")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "eve", users[0].Username)
	assert.True(t, users[0].IsBanned)
	assert.True(t, users[1].IsBanned, "shares the banned IP")
	assert.False(t, users[2].IsBanned)

	filtered, err := ListUsers(ctx, conn, "113.7")
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
	filtered, err = ListUsers(ctx, conn, "%")
	require.NoError(t, err)
	assert.Len(t, filtered, 0, "filter is a plain substring, not a pattern")

	_, err = UnbanUser(ctx, conn, noIP.ID)
	assert.ErrorIs(t, err, ErrUserOrIPNotFound)
	_, err = UnbanUser(ctx, conn, sameIP.ID)
	require.NoError(t, err)
	_, err = UnbanUser(ctx, conn, withIP.ID)
	assert.ErrorIs(t, err, ErrNotBanned)

	isBanned, err = IsBanned(ctx, conn, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, isBanned)
}
