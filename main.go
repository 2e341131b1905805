package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/enrichman/httpgrace"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/site-editor/internal/auth"
	"github.com/debemdeboas/site-editor/internal/cache"
	"github.com/debemdeboas/site-editor/internal/config"
	"github.com/debemdeboas/site-editor/internal/content"
	"github.com/debemdeboas/site-editor/internal/db"
	"github.com/debemdeboas/site-editor/internal/editor"
	"github.com/debemdeboas/site-editor/internal/logger"
	"github.com/debemdeboas/site-editor/internal/model"
	"github.com/debemdeboas/site-editor/internal/repository"
	"github.com/debemdeboas/site-editor/internal/routes"
	"github.com/debemdeboas/site-editor/internal/site"
	"github.com/debemdeboas/site-editor/internal/sse"
	"github.com/debemdeboas/site-editor/internal/util"
)

//go:embed static/* templates/*
var files embed.FS

const (
	shutdownTimeout = 10 * time.Second
	readTimeout     = 10 * time.Second
)

var mainLogger zerolog.Logger

func setLoggers(l zerolog.Logger) {
	mainLogger = l
	config.SetLogger(l)
	db.SetLogger(l)
	content.SetLogger(l)
	repository.SetLogger(l)
	auth.SetLogger(l)
	editor.SetLogger(l)
	site.SetLogger(l)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	setLoggers(logger.New("info"))
	if err := config.LoadConfig(configPath); err != nil {
		mainLogger.Fatal().Err(err).Str("path", configPath).Msg("Error loading configuration")
	}
	cfg := config.AppConfig
	setLoggers(logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		mainLogger.Fatal().Err(err).Msg("Error starting")
	}
	defer app.Close()

	go app.repo.Watch(ctx, cfg.Backend.WatchInterval)

	srv := newServer(ctx, stop, app.Handler())

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	mainLogger.Info().Str("addr", addr).Str("backend", cfg.Backend.Type).Str("auth", cfg.Auth.Type).Msg("Listening")
	if err := srv.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		mainLogger.Fatal().Err(err).Msg("Server error")
	}
}

// newServer drains requests on SIGINT/SIGTERM. Request contexts derive from ctx, so
// open SSE streams end as soon as shutdown begins.
func newServer(ctx context.Context, stop context.CancelFunc, h http.Handler) *httpgrace.Server {
	return httpgrace.NewServer(h,
		httpgrace.WithTimeout(shutdownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slog.New(slog.NewTextHandler(mainLogger, nil))),
		httpgrace.WithBeforeShutdown(func() {
			mainLogger.Info().Msg("Shutting down")
			stop()
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(readTimeout),
			func(srv *http.Server) {
				srv.ReadHeaderTimeout = readTimeout
				srv.BaseContext = func(net.Listener) context.Context { return ctx }
			},
		),
	)
}

// app holds everything a running site needs. Handler builds the full middleware chain.
type app struct {
	cfg      *config.Config
	files    fs.FS
	db       db.Db
	repo     repository.ContentRepository
	store    *content.Store
	provider auth.AuthProvider
	clients  *sse.SSEClients
	editor   *editor.Handler
	site     *site.Renderer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, files: files, clients: sse.NewSSEClients()}

	if cfg.Backend.Type == repository.TypeSQLite || cfg.Auth.Type == auth.TypeClerk {
		database := db.NewSQLite(cfg.Backend.SQLitePath)
		if err := database.InitDb(); err != nil {
			return nil, fmt.Errorf(config.ErrInitializeDatabaseFmt, err)
		}
		a.db = database
	}

	repo, err := repository.NewFromConfig(ctx, cfg.Backend, a.db)
	if err != nil {
		return nil, err
	}
	if dbRepo, ok := repo.(*repository.DbRepository); ok {
		dbRepo.SetAuthor(model.UserID(cfg.Auth.AdminUserID))
	}
	a.repo = repo

	provider, err := newAuthProvider(cfg.Auth, a.db)
	if err != nil {
		return nil, fmt.Errorf(config.ErrCreateProviderFmt, err)
	}
	a.provider = provider

	schema, err := content.NewSchema(cfg.Editor.Sections)
	if err != nil {
		return nil, fmt.Errorf("invalid editor.sections: %w", err)
	}
	a.store = content.NewStore(repo,
		content.WithSchema(schema),
		content.WithMaxValueLength(cfg.Editor.MaxValueLength),
	)

	// A confirmed change reaches other open pages. A change made outside this process
	// also drops the cached section first.
	a.store.SetReloadNotifier(a.broadcastSection)
	repo.SetReloadNotifier(func(section model.SectionKey) {
		a.store.Invalidate(section)
		a.broadcastSection(section)
	})

	a.editor = editor.NewHandler(a.store, provider, cfg.Editor)
	a.site, err = site.NewRenderer(a.files, a.editor, cfg.Site)
	if err != nil {
		return nil, err
	}

	return a, nil
}

func newAuthProvider(cfg config.AuthConfig, database db.Db) (auth.AuthProvider, error) {
	switch cfg.Type {
	case auth.TypeEd25519:
		return auth.NewEd25519AuthProvider(os.Getenv("ED25519_PUBKEY"), "Authorization", model.UserID(cfg.AdminUserID))
	case auth.TypeClerk:
		return auth.NewClerkAuthProvider(os.Getenv("CLERK_API"), database, cfg.ClerkAdmins), nil
	case auth.TypeNone:
		return auth.NewNoAuthProvider(), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}

func (a *app) broadcastSection(section model.SectionKey) {
	a.clients.Broadcast(section, editor.ContentEvent(section))
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) Handler() http.Handler {
	static, _ := fs.Sub(a.files, config.StaticLocalDir)
	fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(static, path)
		if err != nil {
			return nil
		}
		cache.SetStaticHash(config.StaticUrlPath+path, util.ContentHash(data))
		return nil
	})

	mux := http.NewServeMux()

	mux.HandleFunc("GET "+routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow: /editor/\nDisallow: /auth/\n"))
	})
	mux.Handle("GET "+config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, http.FileServer(http.FS(static))))
	mux.HandleFunc("GET "+routes.SSEPath, a.eventsHandler)
	mux.HandleFunc(routes.RootPath, a.site.ServePage)
	mux.HandleFunc(routes.PagePath, a.site.ServePage)
	mux.HandleFunc("POST "+routes.WebhookUser, a.provider.HandleWebhookUser)

	if a.cfg.Editor.Enabled {
		a.editor.RegisterRoutes(mux)
	}

	if p, ok := a.provider.(*auth.Ed25519AuthProvider); ok {
		if err := auth.RegisterEd25519AuthRoutes(mux, p, a.files); err != nil {
			mainLogger.Error().Err(err).Msg("Error loading auth template")
		}
	}

	securedMux := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == routes.RobotsPath {
			mux.ServeHTTP(w, r)
		} else {
			secureHeaders(mux.ServeHTTP)(w, r)
		}
	})

	authMux := a.provider.WithHeaderAuthorization()(securedMux)
	return withLogger(cacheIt(authMux.ServeHTTP))
}

// withLogger attaches the request logger used by zerolog.Ctx in handlers.
func withLogger(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := mainLogger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		h(w, r.WithContext(l.WithContext(r.Context())))
	})
}

func cacheIt(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		// Add etag header to response if it's a static file
		if hash, ok := cache.GetStaticHash(r.URL.Path); ok {
			w.Header().Set(config.HCacheControl, "public, max-age=3600")
			w.Header().Set(config.HETag, hash)
		}

		h(w, r)
	}
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "same-origin")

		h(w, r)
	}
}

// eventsHandler streams content events. ?section= narrows the stream to one section.
func (a *app) eventsHandler(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	var section model.SectionKey
	if s := r.URL.Query().Get("section"); s != "" {
		key, err := model.ParseSectionKey(s)
		if err != nil {
			http.Error(w, config.ErrInvalidField, http.StatusBadRequest)
			return
		}
		section = key
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := sse.NewClient(section)
	a.clients.Add(client)
	l.Debug().Str("section", string(section)).Msg("SSE client connected")

	defer func() {
		a.clients.Delete(client)
		l.Debug().Msg("SSE client disconnected")
	}()

	for {
		select {
		case event, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, event)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
