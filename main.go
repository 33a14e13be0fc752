// Command riddlebot is the main entrypoint for the chat bot and its workers.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts the watch-time sampler, the Twitch chat bot with its Discord
//     mirror, and OAuth token refreshers for the bot and broadcaster accounts.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status,
//     /leaderboard, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/riddlerrr/riddlebot/chat"
	"github.com/riddlerrr/riddlebot/config"
	"github.com/riddlerrr/riddlebot/db"
	"github.com/riddlerrr/riddlebot/discord"
	"github.com/riddlerrr/riddlebot/oauth"
	"github.com/riddlerrr/riddlebot/riddleapi"
	"github.com/riddlerrr/riddlebot/server"
	"github.com/riddlerrr/riddlebot/spotify"
	"github.com/riddlerrr/riddlebot/telemetry"
	"github.com/riddlerrr/riddlebot/twitchapi"
	"github.com/riddlerrr/riddlebot/viewer"
	"github.com/riddlerrr/riddlebot/watchtime"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("riddlebot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Helix client: app token for public lookups, the bot account's stored
	// user token for chatters, the broadcaster's for predictions handled below.
	appTokens := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
	botHelix := &twitchapi.HelixClient{
		AppTokenSource:  appTokens,
		UserTokenSource: &twitchapi.StoredUserToken{DB: database, Provider: "twitch-bot"},
		ClientID:        cfg.TwitchClientID,
	}
	broadcasterHelix := &twitchapi.HelixClient{
		AppTokenSource:  appTokens,
		UserTokenSource: &twitchapi.StoredUserToken{DB: database, Provider: "twitch-user"},
		ClientID:        cfg.TwitchClientID,
	}

	// Watch-time sampler
	viewers := viewer.NewStore(database)
	sampler := &watchtime.Sampler{
		Presence: &watchtime.HelixPresence{
			Helix:       botHelix,
			Channel:     cfg.TwitchChannel,
			BotUsername: cfg.TwitchBotUsername,
		},
		Ledger:      viewers,
		Channel:     cfg.TwitchChannel,
		BotUsername: cfg.TwitchBotUsername,
		Ignore:      cfg.WatchTimeIgnore,
		Warmup:      cfg.WatchTimeWarmup,
		Interval:    cfg.WatchTimeInterval,
		Heartbeat: func(hctx context.Context, live bool, credited int) {
			now := time.Now().UTC().Format(time.RFC3339)
			_ = db.SetKV(hctx, database, server.KVLastTick, now)
			liveVal := "0"
			if live {
				liveVal = "1"
			}
			_ = db.SetKV(hctx, database, server.KVStreamLive, liveVal)
			_ = db.SetKV(hctx, database, server.KVLastCredited, strconv.Itoa(credited))
		},
	}
	go sampler.Run(ctx)

	// Chat bot with its collaborators. Missing optional config disables the
	// corresponding feature rather than failing startup.
	var spotifyClient *spotify.Client
	if err := cfg.ValidateSpotifyReady(); err == nil {
		spotifyClient = spotify.New(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRefreshToken, cfg.SpotifyPlaylistID)
	} else {
		slog.Info("spotify integration disabled", slog.Any("reason", err))
	}
	bot := chat.New(cfg, viewers, broadcasterHelix, discord.New(cfg.DiscordWebhookURL), &riddleapi.Client{}, spotifyClient)
	if err := cfg.ValidateChatReady(); err == nil {
		go func() {
			if err := bot.Start(ctx); err != nil {
				slog.Error("chat bot exited with error", slog.Any("err", err))
			}
		}()
	} else {
		slog.Info("chat bot disabled", slog.Any("reason", err))
	}

	// Centralized OAuth token refreshers for the two Twitch user tokens.
	twitchRefresh := func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
	}
	oauth.StartRefresher(ctx, database, "twitch-bot", 5*time.Minute, 15*time.Minute, twitchRefresh)
	oauth.StartRefresher(ctx, database, "twitch-user", 5*time.Minute, 15*time.Minute, twitchRefresh)

	// HTTP server (health/status/leaderboard/metrics)
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		if err := server.Start(ctx, database, addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
