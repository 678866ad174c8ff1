// Package main booklend API.
//
// @title           Booklend API
// @version         1.0
// @description     Peer-to-peer book lending: catalog, loans, waitlist, fines.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"booklend/app/echoServer"
	adminctrl "booklend/app/echoServer/controller/admin"
	authctrl "booklend/app/echoServer/controller/auth"
	bookctrl "booklend/app/echoServer/controller/book"
	favctrl "booklend/app/echoServer/controller/favorite"
	finectrl "booklend/app/echoServer/controller/fine"
	loanctrl "booklend/app/echoServer/controller/loan"
	notifctrl "booklend/app/echoServer/controller/notification"
	recctrl "booklend/app/echoServer/controller/recommend"
	reviewctrl "booklend/app/echoServer/controller/review"
	wlctrl "booklend/app/echoServer/controller/waitlist"
	"booklend/app/echoServer/validation"
	"booklend/config"
	bookrepo "booklend/repository/book"
	favrepo "booklend/repository/favorite"
	finerepo "booklend/repository/fine"
	invrepo "booklend/repository/inventory"
	loanrepo "booklend/repository/loan"
	notifrepo "booklend/repository/notification"
	"booklend/repository/recommender"
	reviewrepo "booklend/repository/review"
	statsrepo "booklend/repository/stats"
	userrepo "booklend/repository/user"
	wlrepo "booklend/repository/waitlist"
	adminsvc "booklend/service/admin"
	authsvc "booklend/service/auth"
	booksvc "booklend/service/book"
	favsvc "booklend/service/favorite"
	finesvc "booklend/service/fine"
	loansvc "booklend/service/loan"
	notifsvc "booklend/service/notification"
	recsvc "booklend/service/recommend"
	reviewsvc "booklend/service/review"
	wlsvc "booklend/service/waitlist"
	"booklend/util/database"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db.DB)
	br := bookrepo.New(db.DB)
	ir := invrepo.New(db.DB)
	lr := loanrepo.New(db.DB)
	fr := finerepo.New(db.DB)
	wr := wlrepo.New(db.DB)
	nr := notifrepo.New(db.DB)
	rr := reviewrepo.New(db.DB)
	fvr := favrepo.New(db.DB)
	sr := statsrepo.New(db.DB)
	scorer := recommender.NewHTTP(cfg.ScorerURL, cfg.ScorerTimeout)

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	bs := booksvc.New(db, br)
	ls := loansvc.New(db, br, ir, lr, fr, wr, nr, log)
	ws := wlsvc.New(db, br, lr, wr)
	fs := finesvc.New(db, fr)
	rs := reviewsvc.New(db, br, rr)
	fvs := favsvc.New(br, fvr)
	ns := notifsvc.New(nr)
	recs := recsvc.New(scorer, br, log)
	adms := adminsvc.New(sr)

	// overdue sweep
	sweeper := loansvc.NewSweeper(lr)
	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for range t.C {
			n, err := sweeper.MarkOverdue(ctx)
			if err != nil {
				log.Error("overdue sweep failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("overdue sweep", "flagged", n)
			}
		}
	}()

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}
	wlC := &wlctrl.Controller{Svc: ws, V: v, Log: log}
	fineC := &finectrl.Controller{Svc: fs, V: v, Log: log}
	favC := &favctrl.Controller{Svc: fvs, V: v, Log: log}
	reviewC := &reviewctrl.Controller{Svc: rs, V: v, Log: log}
	notifC := &notifctrl.Controller{Svc: ns, Log: log}
	recC := &recctrl.Controller{Svc: recs, Log: log}
	adminC := &adminctrl.Controller{Svc: adms, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{"status": "ok"})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:         authC,
		Book:         bookC,
		Loan:         loanC,
		Waitlist:     wlC,
		Fine:         fineC,
		Favorite:     favC,
		Review:       reviewC,
		Notification: notifC,
		Recommend:    recC,
		Admin:        adminC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port, "env", cfg.Env)
	e.Logger.Fatal(e.Start(":" + port))
}
