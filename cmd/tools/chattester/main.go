package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moodtherapist/backend/internal/analysis/mood"
	"github.com/moodtherapist/backend/internal/config"
	"github.com/moodtherapist/backend/internal/logging"
	chatModel "github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/service/ai"
	"github.com/moodtherapist/backend/internal/service/chat"
	"github.com/moodtherapist/backend/internal/service/external"
)

var (
	modeFlag    string
	historyFlag string
	timeoutFlag time.Duration
	verboseFlag bool
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}

	root := &cobra.Command{
		Use:           "chattester",
		Short:         "Exercise the mood classifier, prompt builder and chat pipeline from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&modeFlag, "mode", "", "chat mode: default, mood_check or affirmations")
	root.PersistentFlags().StringVar(&historyFlag, "history", "", "path to a JSON file holding prior turns")
	root.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 45*time.Second, "overall request timeout")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log pipeline details")

	root.AddCommand(classifyCmd, promptCmd, askCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
		os.Exit(1)
	}
}

var classifyCmd = &cobra.Command{
	Use:   "classify <message>",
	Short: "Show the mood label and the evidence behind it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := loadHistory(historyFlag)
		if err != nil {
			return err
		}

		decision := mood.Analyze(strings.Join(args, " "), history)
		fmt.Printf("Mood:     %s\n", moodColor(decision.Mood))
		fmt.Printf("Score:    %d\n", decision.Score)
		fmt.Printf("Negative: %s\n", listOrDash(decision.Negative))
		fmt.Printf("Positive: %s\n", listOrDash(decision.Positive))
		return nil
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt <message>",
	Short: "Print the prompt that would be sent to the generation provider",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRequest(args)
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		svc, err := chat.NewService(cmd.Context(), cfg.Chat, chat.Deps{Logger: newLogger()})
		if err != nil {
			return err
		}
		text, err := svc.Preview(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Run one exchange against the configured provider without persisting it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRequest(args)
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log := newLogger()
		ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
		defer cancel()

		var generator model.BaseChatModel
		if cfg.AI.Enabled() {
			generator, err = ai.NewChatModel(ctx, cfg.AI, log)
			if err != nil {
				return fmt.Errorf("init %s provider: %w", cfg.AI.Provider, err)
			}
		} else {
			fmt.Printf("%s %s credentials not configured, expect the apology reply\n", color.YellowString("⚡"), cfg.AI.Provider)
		}

		trigger := external.NewTrigger(
			external.NewNewsClient(cfg.External, nil),
			external.NewSpotifyClient(cfg.External, nil),
			cfg.Chat.MusicTrigger,
			logging.Component(log.Logger, "external"),
		)
		svc, err := chat.NewService(ctx, cfg.Chat, chat.Deps{
			ChatModel: generator,
			External:  trigger,
			Logger:    log,
		})
		if err != nil {
			return err
		}

		started := time.Now()
		reply := svc.Respond(ctx, req)

		fmt.Printf("Mood:  %s\n", moodColor(reply.Mood))
		fmt.Printf("Took:  %s\n\n", time.Since(started).Round(time.Millisecond))
		fmt.Println(reply.Text)
		if reply.External != nil {
			raw, _ := json.MarshalIndent(reply.External, "", "  ")
			fmt.Printf("\n%s\n%s\n", color.CyanString("External content:"), raw)
		}
		return nil
	},
}

func buildRequest(args []string) (chatModel.Request, error) {
	mode, err := chatModel.ParseMode(modeFlag)
	if err != nil {
		return chatModel.Request{}, err
	}
	history, err := loadHistory(historyFlag)
	if err != nil {
		return chatModel.Request{}, err
	}
	return chatModel.Request{
		Message: strings.Join(args, " "),
		History: history,
		Mode:    mode,
	}, nil
}

func loadHistory(path string) ([]chatModel.Turn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var turns []chatModel.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	return turns, nil
}

func newLogger() *logrus.Entry {
	level := "warn"
	if verboseFlag {
		level = "debug"
	}
	return logging.Component(logging.New(config.LogConfig{Level: level}), "chattester")
}

func moodColor(m chatModel.Mood) string {
	switch m {
	case chatModel.MoodPositive:
		return color.GreenString(string(m))
	case chatModel.MoodNegative:
		return color.RedString(string(m))
	default:
		return color.YellowString(string(m))
	}
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
