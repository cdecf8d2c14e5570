// Command exam-agent takes the exam headlessly through the proctor session.
// It is used for rehearsals and load checks against a running server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cgpaplus/exam-core/internal/config"
	"github.com/cgpaplus/exam-core/internal/examclient"
	"github.com/cgpaplus/exam-core/internal/logger"
	"github.com/cgpaplus/exam-core/internal/proctor"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	baseURL := flag.String("api", cfg.APIBaseURL, "API base URL")
	token := flag.String("token", cfg.APIToken, "Participant bearer token")
	answersPath := flag.String("answers", "", "JSON object of questionId to letter; unlisted questions get -default")
	fallback := flag.String("default", "A", "Letter chosen for questions missing from -answers")
	pace := flag.Duration("pace", 0, "Pause between answers")
	progressTimeout := flag.Duration("progress-timeout", 5*time.Second, "Bound on each progress post and on the wait for them before submitting")
	flag.Parse()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if *token == "" {
		log.Fatal().Msg("A participant token is required (-token or API_TOKEN)")
	}

	picks := map[string]string{}
	if *answersPath != "" {
		raw, err := os.ReadFile(*answersPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read answers file")
		}
		if err := json.Unmarshal(raw, &picks); err != nil {
			log.Fatal().Err(err).Msg("Failed to parse answers file")
		}
	}

	layout, err := proctor.DefaultLayout()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load section layout")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := proctor.NewSession(examclient.New(*baseURL, *token), proctor.NopCapabilities{}, layout,
		proctor.WithHooks(proctor.Hooks{
			OnStateChange: func(st proctor.State) {
				log.Info().Str("state", st.String()).Msg("Session state changed")
			},
		}),
		proctor.WithProgressTimeout(*progressTimeout),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session")
	}

	if err := sess.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start session")
	}
	if sess.State() == proctor.StateAlreadyTaken {
		if prev := sess.PreviousResult(); prev != nil {
			printSummary("Already taken", prev.TotalCorrect, prev.TotalQuestions, prev.Accuracy, prev.TimeTakenSeconds)
		} else {
			fmt.Println("Already taken")
		}
		return
	}

	run(ctx, sess, picks, *fallback, *pace, log)
	sess.Wait()

	switch sess.State() {
	case proctor.StateCompleted:
		r := sess.Result()
		printSummary(r.Message, r.TotalCorrect, r.TotalQuestions, r.Accuracy, r.TimeTakenSeconds)
	default:
		log.Fatal().Err(sess.Err()).Str("state", sess.State().String()).Msg("Exam did not complete")
	}
}

// run answers section by section until NextSection submits. An interrupt
// submits whatever has been answered so far.
func run(ctx context.Context, sess *proctor.Session, picks map[string]string, fallback string, pace time.Duration, log zerolog.Logger) {
	for {
		section, _ := sess.CurrentSection()
		for _, qid := range section.Questions {
			letter, ok := picks[qid]
			if !ok {
				letter = fallback
			}
			if err := sess.SelectAnswer(qid, letter); err != nil {
				log.Warn().Err(err).Str("question", qid).Str("letter", letter).Msg("Answer rejected")
			}
			if pace > 0 {
				select {
				case <-ctx.Done():
					submitNow(sess, log)
					return
				case <-time.After(pace):
				}
			}
		}

		submitted, err := sess.NextSection()
		if errors.Is(err, proctor.ErrNotInProgress) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("section", section.Title).Msg("Cannot leave section, submitting")
			submitNow(sess, log)
			return
		}
		if submitted {
			return
		}
	}
}

func submitNow(sess *proctor.Session, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := sess.Submit(ctx); err != nil {
		log.Error().Err(err).Msg("Submit failed")
	}
}

func printSummary(label string, correct, total int, accuracy float64, seconds int64) {
	fmt.Printf("%s: %d/%d correct (%.1f%%) in %s\n",
		label, correct, total, accuracy, (time.Duration(seconds) * time.Second).String())
}
