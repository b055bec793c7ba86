// Package seed fills a development database with sample users and images.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"

	lorem "github.com/HandmadeNetwork/golorem"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/models"
	"github.com/snapwall/snapwall/src/oops"
	"github.com/snapwall/snapwall/src/storage"
)

// Every seeded account, and every hidden location, uses this password.
const Password = "password"

// The address the seeded spammer was last seen from. It is banned.
const SpammerIP = "203.0.113.66"

var sampleNames = []string{"alice", "bob", "charlie", "dana", "erin", "frank", "grace", "heidi"}

type Options struct {
	Users         int
	ImagesPerUser int
}

/*
Seed creates an admin account ("admin"), opts.Users regular users with
opts.ImagesPerUser generated images each, and a banned spammer. Running it
again reuses the accounts that already exist and adds more images.
*/
func Seed(ctx context.Context, conn db.ConnOrTx, store storage.Store, opts Options) error {
	log := logging.ExtractLogger(ctx)

	admin, err := seedUser(ctx, conn, "admin", "192.168.2.1")
	if err != nil {
		return err
	}
	if err := imgdata.SetAdmin(ctx, conn, admin.Username, true); err != nil {
		return oops.New(err, "failed to make admin an admin")
	}
	log.Info().Str("username", admin.Username).Msg("Seeded admin user")

	var users []*models.User
	for i := 0; i < opts.Users; i++ {
		name := fmt.Sprintf("user%d", i+1)
		if i < len(sampleNames) {
			name = sampleNames[i]
		}
		user, err := seedUser(ctx, conn, name, fmt.Sprintf("192.168.2.%d", i+10))
		if err != nil {
			return err
		}
		users = append(users, user)
	}
	log.Info().Int("count", len(users)).Msg("Seeded users")

	for _, user := range users {
		for i := 0; i < opts.ImagesPerUser; i++ {
			if _, err := seedImage(ctx, conn, store, user); err != nil {
				return err
			}
		}
	}
	log.Info().Int("count", len(users)*opts.ImagesPerUser).Msg("Seeded images")

	// Everyone likes a few of the images
	images, err := imgdata.ListImages(ctx, conn, admin.ID, nil)
	if err != nil {
		return err
	}
	for _, user := range users {
		for _, listing := range images {
			if listing.Image.UserID == user.ID || rand.Intn(3) != 0 {
				continue
			}
			err := imgdata.Like(ctx, conn, user.ID, listing.Image.ID)
			if err != nil && !errors.Is(err, imgdata.ErrAlreadyLiked) {
				return err
			}
		}
	}

	spammer, err := seedUser(ctx, conn, "spam", SpammerIP)
	if err != nil {
		return err
	}
	if _, err := imgdata.BanUser(ctx, conn, spammer.ID); err != nil && !errors.Is(err, imgdata.ErrAlreadyBanned) {
		return err
	}
	log.Info().Str("ip", SpammerIP).Msg("Seeded banned spammer")

	return nil
}

// Creates the user, or fetches them if they already exist.
func seedUser(ctx context.Context, conn db.ConnOrTx, username, ip string) (*models.User, error) {
	user, err := imgdata.CreateUser(ctx, conn, username, Password, ip)
	if errors.Is(err, imgdata.ErrDuplicateUsername) {
		return imgdata.FetchUserByUsername(ctx, conn, username)
	}
	return user, err
}

func seedImage(ctx context.Context, conn db.ConnOrTx, store storage.Store, owner *models.User) (*models.Image, error) {
	in := imgdata.UploadInput{
		Filename:    fmt.Sprintf("%s.png", lorem.Word(4, 10)),
		Content:     randomPNG(64+rand.Intn(256), 64+rand.Intn(256)),
		Description: lorem.Sentence(4, 14),
	}
	if randomBool() {
		in.Location = lorem.Word(5, 12)
		if randomBool() {
			in.HideLocation = true
			in.LocationPassword = Password
		}
	}

	return imgdata.CreateImage(ctx, conn, store, owner.ID, in)
}

// A solid block of a random color with a lighter stripe, so thumbnails are
// easy to tell apart.
func randomPNG(w, h int) []byte {
	base := color.RGBA{R: uint8(rand.Intn(256)), G: uint8(rand.Intn(256)), B: uint8(rand.Intn(256)), A: 255}
	stripe := color.RGBA{R: base.R/2 + 128, G: base.G/2 + 128, B: base.B/2 + 128, A: 255}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y > h/3 && y < h/2 {
				img.Set(x, y, stripe)
			} else {
				img.Set(x, y, base)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func randomBool() bool {
	return rand.Intn(2) == 1
}
