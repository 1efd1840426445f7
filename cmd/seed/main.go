// Package main provides a tool to seed the database with sample gallery data.
//
// This inserts a batch of images with tags so the search surface can be
// exercised against realistic data. Writes go through the store, so the
// index hooks fire exactly as they would during ingest.
//
// Usage:
//
//	DATA_PATH=~/artriver go run ./cmd/seed
//	DATA_PATH=~/artriver go run ./cmd/seed -count 500
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/artriverapp/artriver-server/internal/config"
	"github.com/artriverapp/artriver-server/internal/domain"
	"github.com/artriverapp/artriver-server/internal/store"
	"github.com/artriverapp/artriver-server/internal/store/sqlite"
)

var count = flag.Int("count", 100, "Number of images to create")

var (
	platforms = []string{"pixiv", "twitter", "danbooru"}
	authors   = []string{"Aoi Shiro", "Hana Midori", "Kuro Neko", "Yuki Sora", "Ren Akane"}
	subjects  = []string{"Sunset Over the Bay", "Moonlit Garden", "City Lights", "Forest Spirit", "Winter Festival"}
	tagPool   = []string{"landscape", "original", "fanart", "scenery", "portrait", "watercolor", "sketch", "night", "sky"}
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Opening database at: %s\n", cfg.DatabasePath())

	s, err := sqlite.Open(cfg.DatabasePath(), nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	created := 0
	for i := 0; i < *count; i++ {
		pid := fmt.Sprintf("seed-%d-%d", time.Now().Unix(), i)
		author := rng.Intn(len(authors))

		img := &domain.Image{
			PID:       pid,
			Title:     subjects[rng.Intn(len(subjects))],
			Author:    authors[author],
			AuthorID:  fmt.Sprintf("a%03d", author+1),
			Platform:  platforms[rng.Intn(len(platforms))],
			Width:     800 + rng.Intn(2400),
			Height:    600 + rng.Intn(1800),
			Filename:  pid + ".png",
			XRestrict: rng.Intn(10) == 0,
			AIType:    rng.Intn(5) == 0,
			CreatedAt: time.Now().UTC().Add(-time.Duration(rng.Intn(72)) * time.Hour),
		}

		if err := s.CreateImage(ctx, img); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				continue
			}
			log.Printf("Failed to create image %s: %v", pid, err)
			continue
		}

		tags := make([]string, 0, 3)
		for _, t := range rng.Perm(len(tagPool))[:3] {
			tags = append(tags, tagPool[t])
		}
		if err := s.SetImageTags(ctx, pid, tags); err != nil {
			log.Printf("Failed to tag image %s: %v", pid, err)
		}

		created++
	}

	fmt.Printf("Created %d images\n", created)
}
