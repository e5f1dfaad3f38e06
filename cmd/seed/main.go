// Package main seeds the package catalog and prints freshly generated coupons.
//
//	seed -packages
//	seed -coupons 50 -package pro
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/catalog"
	"rewards-ledger/internal/config"
	"rewards-ledger/internal/pkg/codegen"
	"rewards-ledger/internal/pkg/db"
	"rewards-ledger/internal/repository"
	"rewards-ledger/internal/service"
)

func main() {
	seedPackages := flag.Bool("packages", false, "upsert the default package tiers")
	couponCount := flag.Int("coupons", 0, "number of coupons to generate")
	tier := flag.String("package", string(catalog.TierPro), "package type for generated coupons")
	configPath := flag.String("config", "config", "directory containing config.yaml")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if !*seedPackages && *couponCount == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	store := repository.NewStore(dbPool.Pool, cfg.Database.LockTimeout, cfg.Withdrawal.DefaultPriority)

	if *seedPackages {
		for _, pc := range catalog.GetAllPackages() {
			p, created, err := store.Packages.Upsert(ctx, pc.Model())
			if err != nil {
				log.Fatal().Err(err).Str("package", string(pc.Tier)).Msg("Failed to seed package")
			}
			log.Info().Int64("id", p.ID).Str("package", p.Type).Bool("created", created).Msg("Package seeded")
		}
	}

	if *couponCount > 0 {
		pkg, err := store.Packages.GetByType(ctx, *tier)
		if err != nil {
			log.Fatal().Err(err).Str("package", *tier).Msg("Unknown package; run with -packages first")
		}
		coupons := service.NewCouponService(store, codegen.New(cfg.Codes.MaxAttempts), cfg.Codes.CouponPrefix)
		generated, err := coupons.Generate(ctx, pkg.ID, *couponCount, decimal.Zero)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate coupons")
		}
		for _, c := range generated {
			fmt.Println(c.Code)
		}
	}
}
