package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/starwars-api/internal/auth"
	"github.com/iliyamo/starwars-api/internal/config"
	"github.com/iliyamo/starwars-api/internal/database"
	"github.com/iliyamo/starwars-api/internal/film"
	"github.com/iliyamo/starwars-api/internal/handler"
	"github.com/iliyamo/starwars-api/internal/mail"
	"github.com/iliyamo/starwars-api/internal/middleware"
	"github.com/iliyamo/starwars-api/internal/queue"
	"github.com/iliyamo/starwars-api/internal/repository"
	"github.com/iliyamo/starwars-api/internal/router"
	"github.com/iliyamo/starwars-api/internal/swapi"
	"github.com/iliyamo/starwars-api/internal/token"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis backs the refresh-token store, so unlike the cache and
	// rate limiter it is not allowed to degrade away.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed; refresh tokens cannot be stored")
	}

	users := repository.NewUserRepo(db)
	resets := repository.NewResetTokenRepo(db)
	comments := repository.NewCommentRepo(db)

	codec := token.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTLHours, cfg.RefreshTTLDays)
	store := token.NewStore(rdb, cfg.StoreTTLDays)
	mailer := mail.NewPublisher(cfg.FrontendBaseURL)

	authSvc := auth.NewService(users, resets, codec, store, mailer, cfg.BcryptCost)
	filmSvc := film.NewService(swapi.New(cfg.SwapiBaseURL), comments, rdb)

	// Background consumer that drains the outbound mail queue.
	go func() {
		if err := queue.StartMailConsumer(); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
	}))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	guard := middleware.JWTAuth(codec, users)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), guard)
	router.RegisterFilms(e, handler.NewFilmHandler(filmSvc), guard, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
