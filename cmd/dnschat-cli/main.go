// Command dnschat-cli is a manual test harness for the dnschat core: it
// sends one prompt through Client.Execute and prints the reassembled reply,
// the same single-shot exercise the teacher's cmd/client/main.go performs
// for its own tunnel (connect, exercise, report), minus the persistent
// connection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dnschat"
	"dnschat/chatconfig"
	"dnschat/chatlog"
)

func main() {
	text := flag.String("text", "", "Chat prompt to send (required)")
	server := flag.String("server", "", "Override the default DNS server")
	zone := flag.String("zone", "", "Override the default zone")
	timeout := flag.Duration("timeout", 15*time.Second, "Overall request deadline")
	logLevel := flag.String("log-level", "info", "Log level: debug/info/warn/error")

	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	level, err := parseLogLevel(*logLevel)
	if err != nil {
		log.Fatal().Str("level", *logLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if strings.TrimSpace(*text) == "" {
		log.Fatal().Msg("--text is required")
	}

	cfg := chatconfig.DefaultConfig()
	client := dnschat.NewClient(
		dnschat.WithConfig(cfg),
		dnschat.WithLogLevel(level),
		dnschat.WithLogSink(func(e chatlog.Entry) {
			log.Debug().Str("transport", e.Kind).Str("status", string(e.Status)).Msg("attempt")
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := client.Execute(ctx, dnschat.Request{
		Text:   *text,
		Server: *server,
		Zone:   *zone,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("query failed")
	}

	fmt.Println(result.Reassembled)
}

func parseLogLevel(s string) (zerolog.Level, error) {
	switch s {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
