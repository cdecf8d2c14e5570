package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cgpaplus/exam-core/internal/config"
	"github.com/cgpaplus/exam-core/internal/examclient"
	"github.com/cgpaplus/exam-core/internal/logger"
	"github.com/cgpaplus/exam-core/internal/monitor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	interval := flag.Duration("interval", cfg.MonitorInterval, "Live view poll interval")
	baseURL := flag.String("api", cfg.APIBaseURL, "API base URL")
	token := flag.String("token", cfg.APIToken, "Admin bearer token")
	flag.Usage = printUsage
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log := logger.New(os.Stderr, cfg.LogFormat)

	if *token == "" {
		log.Fatal().Msg("An admin token is required (-token or API_TOKEN)")
	}
	client := examclient.New(*baseURL, *token)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	cmd := "live"
	if len(args) > 0 {
		cmd = args[0]
	}

	var err error
	switch cmd {
	case "live":
		err = runLive(ctx, client, *interval)
	case "leaderboard":
		err = printLeaderboard(ctx, client)
	case "history":
		err = printHistory(ctx, client)
	case "reset":
		err = reset(ctx, client, strings.Join(args[1:], " "))
	case "delete":
		if len(args) < 2 {
			printUsage()
			os.Exit(2)
		}
		err = deleteArchive(ctx, client, args[1])
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}
}

func runLive(ctx context.Context, client *examclient.Client, interval time.Duration) error {
	p := monitor.NewPoller(client, interval, monitor.WithOnUpdate(func(s monitor.Snapshot) {
		fmt.Print("\033[H\033[2J")
		if err := monitor.Render(os.Stdout, s); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}))
	return p.Run(ctx)
}

func printLeaderboard(ctx context.Context, client *examclient.Client) error {
	entries, err := client.Leaderboard(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tCOLLEGE\tSCORE\tACCURACY\tTIME")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%.1f%%\t%s\n",
			e.Rank, e.Name, e.College, e.TotalCorrect, e.TotalQuestions, e.Accuracy,
			(time.Duration(e.TimeTakenSeconds) * time.Second).String())
	}
	return tw.Flush()
}

func printHistory(ctx context.Context, client *examclient.Client) error {
	archives, err := client.History(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tPARTICIPANTS\tARCHIVED AT")
	for _, a := range archives {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.ID, a.Label, a.TotalParticipants, a.ArchivedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func reset(ctx context.Context, client *examclient.Client, label string) error {
	resp, err := client.Reset(ctx, label)
	if err != nil {
		return err
	}
	fmt.Printf("%s (archive %s)\n", resp.Message, resp.ArchiveID)
	return nil
}

func deleteArchive(ctx context.Context, client *examclient.Client, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid archive id %q: %w", raw, err)
	}
	if err := client.DeleteArchive(ctx, id); err != nil {
		return err
	}
	fmt.Println("Archive deleted")
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: monitor [flags] [command]")
	fmt.Fprintln(os.Stderr, "Commands: live (default), leaderboard, history, reset [label], delete <archive-id>")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}
