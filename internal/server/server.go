package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rastercell/lms-api/internal/analytics"
	"github.com/rastercell/lms-api/internal/api"
	"github.com/rastercell/lms-api/internal/article"
	"github.com/rastercell/lms-api/internal/attempt"
	"github.com/rastercell/lms-api/internal/auth"
	"github.com/rastercell/lms-api/internal/course"
	"github.com/rastercell/lms-api/internal/event"
	"github.com/rastercell/lms-api/internal/file"
	"github.com/rastercell/lms-api/internal/leaderboard"
	"github.com/rastercell/lms-api/internal/logrec"
	"github.com/rastercell/lms-api/internal/mail"
	"github.com/rastercell/lms-api/internal/quiz"
	"github.com/rastercell/lms-api/internal/sequence"
	"github.com/rastercell/lms-api/internal/telemetry"
	"github.com/rastercell/lms-api/internal/user"
	"github.com/rastercell/lms-api/internal/video"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Auth struct {
		Secret   string
		TokenTTL time.Duration
	}

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	SMTP struct {
		Addr string
		User string
		Pass string
		From string
	}

	Attempt struct {
		SweepInterval time.Duration
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres *pgxpool.Pool
	}

	service struct {
		auth        *auth.Service
		sequence    *sequence.Service
		user        *user.Service
		quiz        *quiz.Service
		attempt     *attempt.Service
		course      *course.Service
		article     *article.Service
		video       *video.Service
		leaderboard *leaderboard.Service
		file        *file.Service
		logrec      *logrec.Service
		analytics   *analytics.Service
	}

	http  *http.Server
	sweep context.CancelFunc
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := s.c.Postgres
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", p.User, p.Pass, p.Addr, p.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() {
	s.service.auth = auth.NewService(auth.Config{
		Secret:   s.c.Auth.Secret,
		TokenTTL: s.c.Auth.TokenTTL,
	})

	s.service.sequence = sequence.NewService(sequence.Config{
		DB: s.infra.postgres,
	})

	s.service.user = user.NewService(user.Config{
		DB:       s.infra.postgres,
		Sequence: s.service.sequence,
		Auth:     s.service.auth,
		Mailer: mail.NewSMTP(mail.Config{
			Addr: s.c.SMTP.Addr,
			User: s.c.SMTP.User,
			Pass: s.c.SMTP.Pass,
			From: s.c.SMTP.From,
		}),
	})

	attemptStore := attempt.NewPostgresStore(s.infra.postgres)

	s.service.quiz = quiz.NewService(quiz.Config{
		DB:       s.infra.postgres,
		Sequence: s.service.sequence,
		Attempts: attemptStore,
	})

	s.service.attempt = attempt.NewService(attempt.Config{
		Catalog:       s.service.quiz,
		Store:         attemptStore,
		EventBus:      s.eb,
		SweepInterval: s.c.Attempt.SweepInterval,
	})

	s.service.course = course.NewService(course.Config{
		DB:       s.infra.postgres,
		Sequence: s.service.sequence,
		EventBus: s.eb,
	})

	s.service.article = article.NewService(article.Config{
		DB:       s.infra.postgres,
		Sequence: s.service.sequence,
	})

	s.service.video = video.NewService(video.Config{
		DB:       s.infra.postgres,
		Sequence: s.service.sequence,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})

	s.service.file = file.NewService(file.Config{DB: s.infra.postgres})
	s.service.logrec = logrec.NewService(logrec.Config{DB: s.infra.postgres})
	s.service.analytics = analytics.NewService(analytics.Config{DB: s.infra.postgres})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())
	e.Use(telemetry.HTTPLogger())
	e.Use(cors.Default())

	api.New(api.Config{
		Router:   e,
		EventBus: s.eb,

		Auth:        s.service.auth,
		User:        s.service.user,
		Quiz:        s.service.quiz,
		Attempt:     s.service.attempt,
		Course:      s.service.course,
		Article:     s.service.article,
		Video:       s.service.video,
		Leaderboard: s.service.leaderboard,
		File:        s.service.file,
		Log:         s.service.logrec,
		Analytics:   s.service.analytics,

		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.sweep = cancel

	go s.service.attempt.RunSweeper(ctx)

	slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.sweep != nil {
		s.sweep()
	}

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	slog.InfoContext(ctx, "server: shutdown completed")
}
