package main

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"meshledger/logging"
	"meshledger/p2p"
)

type simConfig struct {
	bots        int
	basePort    int
	difficulty  int
	minInterval time.Duration
	maxInterval time.Duration
	logLevel    string
}

func main() {
	var cfg simConfig

	cmd := &cobra.Command{
		Use:          "meshsim",
		Short:        "Run a local network of bot nodes that trade and mine at random",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.bots, "bots", 4, "Number of bot nodes, at least 2")
	cmd.Flags().IntVar(&cfg.basePort, "base-port", 19000, "Port of the seed node; bots take the following ports")
	cmd.Flags().IntVar(&cfg.difficulty, "difficulty", 3, "Network difficulty")
	cmd.Flags().DurationVar(&cfg.minInterval, "min-interval", 5*time.Second, "Shortest pause between bot actions")
	cmd.Flags().DurationVar(&cfg.maxInterval, "max-interval", 30*time.Second, "Longest pause between bot actions")
	cmd.Flags().StringVar(&cfg.logLevel, "log-level", "warn", "Node log level")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg simConfig) error {
	if cfg.bots < 2 {
		return errors.New("at least two bots are required to trade")
	}
	if cfg.maxInterval < cfg.minInterval {
		return errors.New("max-interval must not be shorter than min-interval")
	}

	logger := logging.New(logging.Config{Level: cfg.logLevel, Format: "pretty"})
	client := p2p.NewClient(time.Minute)

	bots := make([]*Bot, 0, cfg.bots)
	for i := 0; i < cfg.bots; i++ {
		name := fmt.Sprintf("bot-%d", i)
		if i == 0 {
			name = "seed"
		}
		bot, err := NewBot(name, net.JoinHostPort("127.0.0.1", fmt.Sprint(cfg.basePort+i)), cfg.difficulty, client, logger)
		if err != nil {
			return err
		}
		bots = append(bots, bot)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, bot := range bots {
		g.Go(func() error { return bot.Serve(gctx) })
	}

	// Let the listeners come up, then join everyone through the seed
	time.Sleep(200 * time.Millisecond)
	seed := bots[0]
	for _, bot := range bots[1:] {
		if _, err := client.RegisterAndBroadcast(gctx, seed.URL, bot.URL); err != nil {
			return errors.Wrapf(err, "join %s", bot.Name)
		}
		pterm.Success.Printfln("%s joined the network at %s", bot.Name, bot.URL)
	}

	accounts := make([]string, 0, len(bots))
	for _, bot := range bots {
		accounts = append(accounts, bot.Address())
	}

	for i, bot := range bots {
		r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		g.Go(func() error {
			bot.Behave(gctx, r, accounts, cfg.minInterval, cfg.maxInterval)
			return nil
		})
	}

	pterm.Info.Printfln("Simulating %d nodes, press Ctrl+C to stop", len(bots))
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
