package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/nhattran/livebid-BE/internal/client"
	"github.com/nhattran/livebid-BE/internal/reconciler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// livebid-watch follows one auction from the terminal. It keeps a reconciled
// view of the ledger alive across stream drops and prints every change.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	serverURL := flag.String("server", "http://localhost:8080", "base URL of the bidding API")
	auctionIDStr := flag.String("auction", "", "auction ID to watch")
	accessToken := flag.String("token", "", "optional access token")
	flag.Parse()

	auctionID, err := uuid.Parse(*auctionIDStr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -auction value")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiClient := client.New(*serverURL, *accessToken)
	watcher := client.NewWatcher(apiClient, auctionID, printUpdate)

	if err = watcher.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("watch ended with error")
	}
}

func printUpdate(view *reconciler.View) {
	if final, ok := view.FinalResult(); ok {
		log.Info().
			Str("auction_id", view.AuctionID().String()).
			Int64("final_price", final.FinalPrice).
			Bool("has_winner", final.HasWinner).
			Str("reason", final.Reason).
			Msg("auction closed")
		return
	}

	log.Info().
		Str("auction_id", view.AuctionID().String()).
		Int("bids", len(view.Bids())).
		Int64("current_highest", view.CurrentHighest()).
		Msg("ledger updated")
}
