package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

const version = "1.0.0"

type config struct {
	port    int
	env     string
	storage string
	files   struct {
		users string
		todos string
	}
	db struct {
		dsn                string
		maxOpenConnections int
		maxIdleConnections int
		maxIdleTime        time.Duration
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	jwt struct {
		secret string
		expiry time.Duration
	}
	limiter struct {
		enabled             bool
		maxRequestPerSecond float64
		burst               int
	}
	cors struct {
		trustedOrigins []string
	}
}

type application struct {
	config  config
	storage *storage
	auth    *authService
	tasks   *taskService
	tokens  *tokenIssuer
	mailer  templateSender
	wg      sync.WaitGroup
}

func newApplication(cfg config, s *storage) *application {
	tokens := newTokenIssuer(cfg.jwt.secret, cfg.jwt.expiry)
	app := &application{
		config:  cfg,
		storage: s,
		auth:    newAuthService(s, tokens),
		tasks:   newTaskService(s),
		tokens:  tokens,
	}
	if cfg.smtp.host != "" {
		app.mailer = newMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender)
	}
	return app
}

// background runs fn in a goroutine tracked by the shutdown path.
func (app *application) background(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				log.Printf("background task panic: %v", err)
			}
		}()
		fn()
	}()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid value %q for %s, defaulting to %d", v, key, fallback)
		return fallback
	}
	return n
}

func parseDurationOr(flagName, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf(`invalid value %s for flag "%s" defaulting to %s`, value, flagName, fallback)
		return fallback
	}
	return d
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	var cfg config
	flag.IntVar(&cfg.port, "port", envIntOr("PORT", 3000), "Server Port")
	flag.StringVar(&cfg.env, "env", envOr("APP_ENV", "development"), "Environment [development|production]")
	flag.StringVar(&cfg.storage, "storage", envOr("STORAGE", "file"), "Storage backend [file|postgres]")

	flag.StringVar(&cfg.files.users, "users-file", envOr("USERS_FILE", "data/users.json"), "Path of the users JSON file")
	flag.StringVar(&cfg.files.todos, "todos-file", envOr("TODOS_FILE", "data/todos.json"), "Path of the todos JSON file")

	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConnections, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConnections, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	var maxIdleTime string
	flag.StringVar(&maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")

	flag.StringVar(&cfg.smtp.host, "smtp-host", os.Getenv("SMTP_HOST"), "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", envIntOr("SMTP_PORT", 25), "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", envOr("SMTP_SENDER", "Todo <no-reply@todo.local>"), "SMTP sender")

	flag.StringVar(&cfg.jwt.secret, "jwt-secret", os.Getenv("JWT_SECRET"), "JWT secret")
	var tokenExpiry string
	flag.StringVar(&tokenExpiry, "token-expiry", envOr("TOKEN_EXPIRY", "1h"), "Session token lifetime")

	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", false, "Enable per-IP rate limiting")
	flag.Float64Var(&cfg.limiter.maxRequestPerSecond, "limiter-rps", 2, "Rate limiter maximum requests per second")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 4, "Rate limiter maximum burst")

	var trustedOrigins string
	flag.StringVar(&trustedOrigins, "cors-trusted-origins", envOr("ALLOWED_ORIGIN", "http://localhost:3000"), "Trusted CORS origins (space separated)")
	flag.Parse()

	cfg.db.maxIdleTime = parseDurationOr("db-max-idle-time", maxIdleTime, 15*time.Minute)
	cfg.jwt.expiry = parseDurationOr("token-expiry", tokenExpiry, time.Hour)
	cfg.cors.trustedOrigins = strings.Fields(trustedOrigins)

	if cfg.jwt.secret == "" {
		secret := make([]byte, 32)
		_, err := rand.Read(secret)
		if err != nil {
			log.Fatal(err)
		}
		cfg.jwt.secret = string(secret)
		log.Println("no JWT secret configured, sessions will not survive a restart")
	}

	var s *storage
	switch cfg.storage {
	case "file":
		fs := newFileStore(cfg.files.users, cfg.files.todos)
		s = newStorage(fs, fs)
		log.Printf("storing users in %s and todos in %s", cfg.files.users, cfg.files.todos)
	case "postgres":
		db, err := openDB(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		log.Println("established a connection with database")
		pg := newPGStore(db)
		s = newStorage(pg, pg)
	default:
		log.Fatalf("unknown storage backend %q", cfg.storage)
	}

	app := newApplication(cfg, s)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      composeRoutes(app),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	if err := app.serve(srv); err != nil {
		log.Fatal(err)
	}
	log.Println("stopped server")
}

// serve runs srv until SIGINT or SIGTERM, then drains in-flight requests and
// background tasks.
func (app *application) serve(srv *http.Server) error {
	shutdownErr := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		log.Printf("shutting down server, signal: %s", s)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownErr <- err
			return
		}
		app.wg.Wait()
		shutdownErr <- nil
	}()

	log.Printf("Starting %s server on %s\n", app.config.env, srv.Addr)
	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
