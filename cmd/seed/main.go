// Command seed fills the database with demo users, geotagged posts, follows,
// comments and likes.
package main

import (
	"context"
	"flag"
	"log"

	"geofeed/internal/config"
	"geofeed/internal/database"
	"geofeed/internal/seed"
)

func main() {
	def := seed.DefaultOptions()
	numUsers := flag.Int("users", def.Users, "Number of users to create")
	numPosts := flag.Int("posts", def.Posts, "Number of posts to create")
	maxFollows := flag.Int("follows", def.MaxFollows, "Maximum accounts each user follows")
	maxLikes := flag.Int("likes", def.MaxLikes, "Maximum likes per post")
	maxComments := flag.Int("comments", def.MaxComments, "Maximum comments per post")
	days := flag.Int("days", def.MaxDays, "Spread posts over this many days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		Users:       *numUsers,
		Posts:       *numPosts,
		MaxFollows:  *maxFollows,
		MaxLikes:    *maxLikes,
		MaxComments: *maxComments,
		MaxDays:     *days,
		Jitter:      def.Jitter,
		Seed:        *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d posts, %d follows, %d comments, %d likes",
		sum.Users, sum.Posts, sum.Follows, sum.Comments, sum.Reactions)
	log.Println("Mint a token for any seeded user with: go run ./cmd/devtoken -user <id>")
}
