package admintools

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/imgdata"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/website"
	"github.com/spf13/cobra"
)

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	website.WebsiteCommand.AddCommand(adminCommand)

	grantCommand := &cobra.Command{
		Use:   "grant [username]",
		Short: "Give a user access to the admin console",
		Run: func(cmd *cobra.Command, args []string) {
			requireArgs(cmd, args, 1, "You must provide a username.")
			withConn(func(ctx context.Context, conn *pgx.Conn) error {
				return imgdata.SetAdmin(ctx, conn, args[0], true)
			})
			fmt.Printf("'%s' is now an admin\n", args[0])
		},
	}
	adminCommand.AddCommand(grantCommand)

	revokeCommand := &cobra.Command{
		Use:   "revoke [username]",
		Short: "Take away a user's access to the admin console",
		Run: func(cmd *cobra.Command, args []string) {
			requireArgs(cmd, args, 1, "You must provide a username.")
			withConn(func(ctx context.Context, conn *pgx.Conn) error {
				return imgdata.SetAdmin(ctx, conn, args[0], false)
			})
			fmt.Printf("'%s' is no longer an admin\n", args[0])
		},
	}
	adminCommand.AddCommand(revokeCommand)

	setPasswordCommand := &cobra.Command{
		Use:   "setpassword [username] [new password]",
		Short: "Replace a user's password",
		Run: func(cmd *cobra.Command, args []string) {
			requireArgs(cmd, args, 2, "You must provide a username and a password.")
			withConn(func(ctx context.Context, conn *pgx.Conn) error {
				return imgdata.SetPassword(ctx, conn, args[0], args[1])
			})
			fmt.Printf("Successfully updated password for '%s'\n", args[0])
		},
	}
	adminCommand.AddCommand(setPasswordCommand)

	banCommand := &cobra.Command{
		Use:   "ban [ip]",
		Short: "Add an IP address to the ban list",
		Run: func(cmd *cobra.Command, args []string) {
			requireArgs(cmd, args, 1, "You must provide an IP address.")
			ip := requireIP(args[0])
			withConn(func(ctx context.Context, conn *pgx.Conn) error {
				return imgdata.BanIP(ctx, conn, ip)
			})
			fmt.Printf("Banned %s\n", ip)
		},
	}
	adminCommand.AddCommand(banCommand)

	unbanCommand := &cobra.Command{
		Use:   "unban [ip]",
		Short: "Remove an IP address from the ban list",
		Run: func(cmd *cobra.Command, args []string) {
			requireArgs(cmd, args, 1, "You must provide an IP address.")
			ip := requireIP(args[0])
			withConn(func(ctx context.Context, conn *pgx.Conn) error {
				return imgdata.UnbanIP(ctx, conn, ip)
			})
			fmt.Printf("Unbanned %s\n", ip)
		},
	}
	adminCommand.AddCommand(unbanCommand)
}

func requireArgs(cmd *cobra.Command, args []string, n int, msg string) {
	if len(args) < n {
		fmt.Printf("%s\n\n", msg)
		cmd.Usage()
		os.Exit(1)
	}
}

func requireIP(arg string) string {
	ip := net.ParseIP(arg)
	if ip == nil {
		fmt.Printf("'%s' is not an IP address\n", arg)
		os.Exit(1)
	}
	return ip.String()
}

// Runs f against a fresh connection. Expected failures are printed, anything
// else is fatal.
func withConn(f func(ctx context.Context, conn *pgx.Conn) error) {
	website.LoadConfig()
	ctx := context.Background()

	conn, err := db.NewConn(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to the database")
	}
	defer conn.Close(ctx)

	err = f(ctx, conn)
	if msg, ok := imgdata.UserMessage(err); ok {
		fmt.Println(msg)
		os.Exit(1)
	} else if err != nil {
		logging.Fatal().Err(err).Msg("command failed")
	}
}

