package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/snapwall/snapwall/src/config"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/migration"
	"github.com/snapwall/snapwall/src/migration/seed"
	"github.com/snapwall/snapwall/src/migration/types"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/snapwall/snapwall/src/website"
	"github.com/spf13/cobra"
)

func init() {
	var listMigrations bool

	migrateCommand := &cobra.Command{
		Use:   "migrate [target migration id]",
		Short: "Run database migrations",
		Run: func(cmd *cobra.Command, args []string) {
			website.LoadConfig()
			ctx := context.Background()

			conn, err := db.NewConn(ctx)
			if err != nil {
				logging.Fatal().Err(err).Msg("failed to connect to the database")
			}
			defer conn.Close(ctx)

			if listMigrations {
				if err := migration.ListMigrations(ctx, conn, os.Stdout); err != nil {
					logging.Fatal().Err(err).Msg("failed to list migrations")
				}
				return
			}

			var targetVersion types.MigrationVersion
			if len(args) > 0 {
				var err error
				targetVersion, err = types.ParseMigrationVersion(args[0])
				if err != nil {
					fmt.Printf("ERROR: bad version string: %v\n", err)
					os.Exit(1)
				}
			}
			if err := migration.Migrate(ctx, conn, targetVersion); err != nil {
				logging.Fatal().Err(err).Msg("failed to migrate")
			}
		},
	}
	migrateCommand.Flags().BoolVar(&listMigrations, "list", false, "List available migrations")

	makeMigrationCommand := &cobra.Command{
		Use:   "makemigration <name> <description>...",
		Short: "Create a new database migration file",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a name and a description.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			name := args[0]
			description := strings.Join(args[1:], " ")

			path, err := migration.MakeMigration(name, description)
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Successfully created migration file:\n%s\n", path)
		},
	}

	var numUsers, imagesPerUser int
	seedCommand := &cobra.Command{
		Use:   "seed",
		Short: "Migrate to the latest version and fill the database with sample users and images",
		Long:  "Migrate to the latest version and fill the database with sample users and images. Every sample user has the password \"password\".",
		Run: func(cmd *cobra.Command, args []string) {
			website.LoadConfig()
			ctx := context.Background()

			conn, err := db.NewConnPool(ctx)
			if err != nil {
				logging.Fatal().Err(err).Msg("failed to connect to the database")
			}
			defer conn.Close()

			if err := migration.Migrate(ctx, conn, types.MigrationVersion{}); err != nil {
				logging.Fatal().Err(err).Msg("failed to migrate")
			}

			store, err := storage.New(ctx, config.Config.Storage)
			if err != nil {
				logging.Fatal().Err(err).Msg("failed to set up image storage")
			}

			if err := seed.Seed(ctx, conn, store, seed.Options{Users: numUsers, ImagesPerUser: imagesPerUser}); err != nil {
				logging.Fatal().Err(err).Msg("failed to seed the database")
			}
			fmt.Println("Done!")
		},
	}
	seedCommand.Flags().IntVar(&numUsers, "users", 5, "Number of sample users to create")
	seedCommand.Flags().IntVar(&imagesPerUser, "images", 3, "Number of images per sample user")

	website.WebsiteCommand.AddCommand(migrateCommand)
	website.WebsiteCommand.AddCommand(makeMigrationCommand)
	website.WebsiteCommand.AddCommand(seedCommand)
}
