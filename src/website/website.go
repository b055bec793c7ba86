package website

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/snapwall/snapwall/src/auth"
	"github.com/snapwall/snapwall/src/config"
	"github.com/snapwall/snapwall/src/db"
	"github.com/snapwall/snapwall/src/jobs"
	"github.com/snapwall/snapwall/src/logging"
	"github.com/snapwall/snapwall/src/perf"
	"github.com/snapwall/snapwall/src/storage"
	"github.com/snapwall/snapwall/src/templates"
	"github.com/snapwall/snapwall/src/urls"
	"github.com/spf13/cobra"
)

// How many finished requests the perf collector remembers.
const perfHistory = 1000

var WebsiteCommand = &cobra.Command{
	Use:   "snapwall",
	Short: "Run the Snapwall website",
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)
		LoadConfig()
		logging.Info().Msg("Hello, Snapwall!")

		templates.Init()

		// Refuse to serve against an unmigrated database.
		startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelStartup()

		conn, err := db.NewConnPool(startupCtx)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to the database")
		}
		if err := db.CheckTables(startupCtx, conn); err != nil {
			logging.Fatal().Err(err).Msg("database is not ready; run `snapwall migrate`")
		}

		store, err := storage.New(startupCtx, config.Config.Storage)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to set up image storage")
		}

		var wg sync.WaitGroup

		perfJob := jobs.New("perf collector")
		perfCollector := perf.RunPerfCollector(perfJob.Ctx, perfHistory)
		go func() {
			<-perfCollector.Done()
			perfJob.Finish()
		}()

		// Start background jobs
		wg.Add(1)
		backgroundJobs := jobs.Jobs{
			auth.PeriodicallyDeleteExpiredSessions(conn),
			perfJob,
		}

		// Create HTTP server
		wg.Add(1)
		server := http.Server{
			Addr:    config.Config.Addr,
			Handler: NewWebsiteRoutes(conn, store, perfCollector),
		}
		go func() {
			logging.Info().Str("addr", config.Config.Addr).Msg("Serving the website")
			serverErr := server.ListenAndServe()
			if !errors.Is(serverErr, http.ErrServerClosed) {
				logging.Error().Err(serverErr).Msg("Server shut down unexpectedly")
			}
			// The wg.Done() happens in the shutdown logic below.
		}()

		// Wait for SIGINT in the background and trigger graceful shutdown
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		go func() {
			<-signals // First SIGINT (start shutdown)
			logging.Info().Msg("Shutting down the website")

			const timeout = 10 * time.Second

			go func() {
				logging.Info().Msg("Shutting down background jobs...")
				unfinished := backgroundJobs.CancelAndWait(timeout)
				if len(unfinished) == 0 {
					logging.Info().Msg("Background jobs closed gracefully")
				} else {
					logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
				}
				wg.Done()
			}()

			// Gracefully shut down the HTTP server
			go func() {
				timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				err := server.Shutdown(timeoutCtx)
				if err != nil {
					logging.Warn().Err(err).Msg("Server did not shut down gracefully")
				}
				wg.Done()
			}()

			<-signals // Second SIGINT (force quit)
			logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the website")
			os.Exit(1)
		}()

		// Wait for all of the above to finish, then exit
		wg.Wait()
		conn.Close()
	},
}

// Loads the environment into config.Config and applies it to the loggers and
// url builders. Exits if anything required is missing. Every command that
// touches the database or storage calls this first.
func LoadConfig() {
	if err := config.Load(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init()
	urls.SetGlobalBaseUrl(config.Config.BaseUrl)
}
