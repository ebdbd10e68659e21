// Command sync loads the scraper's CSV output into MongoDB, upserting by
// natural key so re-runs are idempotent. When POSTGRES_URI is set the same
// rows are mirrored into PostgreSQL for SQL-side analysis.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/snirhassin/amazon-storefronts/internal/config"
	"github.com/snirhassin/amazon-storefronts/internal/model"
	"github.com/snirhassin/amazon-storefronts/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "[sync] ", log.LstdFlags)
	cfg := config.Load()

	handler := store.NewHandler(cfg.OutputDir, cfg.InputDir, logger)

	storefronts, err := handler.ReadStorefronts()
	if err != nil {
		logger.Fatalf("read storefronts: %v", err)
	}
	lists, err := handler.ReadLists()
	if err != nil {
		logger.Fatalf("read lists: %v", err)
	}
	products, err := handler.ReadProducts()
	if err != nil {
		logger.Fatalf("read products: %v", err)
	}
	logger.Printf("loaded %d storefronts, %d lists, %d products from CSV",
		len(storefronts), len(lists), len(products))

	client, err := connectMongo(cfg.MongoURI)
	if err != nil {
		logger.Fatalf("connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDBName)
	if err := syncStorefronts(db, storefronts, logger); err != nil {
		logger.Printf("error syncing storefronts: %v", err)
	}
	if err := syncLists(db, lists, logger); err != nil {
		logger.Printf("error syncing lists: %v", err)
	}
	if err := syncProducts(db, products, logger); err != nil {
		logger.Printf("error syncing products: %v", err)
	}

	if cfg.PostgresURI != "" {
		pgDB, err := connectPostgres(cfg.PostgresURI)
		if err != nil {
			logger.Fatalf("connect to PostgreSQL: %v", err)
		}
		defer pgDB.Close()

		if err := mirrorToPostgres(pgDB, storefronts, products, logger); err != nil {
			logger.Printf("error mirroring to PostgreSQL: %v", err)
		}
	}

	logger.Println("sync completed")
}

func connectMongo(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("MONGODB_URI environment variable not set")
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(30 * time.Second).
		SetServerSelectionTimeout(30 * time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	log.Println("Connected to MongoDB")
	return client, nil
}

func connectPostgres(uri string) (*sql.DB, error) {
	db, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	log.Println("Connected to PostgreSQL")
	return db, nil
}

func syncStorefronts(db *mongo.Database, rows []model.Storefront, logger *log.Logger) error {
	logger.Println("syncing storefronts collection...")
	collection := db.Collection("storefronts")
	opts := options.FindOneAndUpdate().SetUpsert(true)

	count := 0
	for _, s := range rows {
		update := bson.M{"$set": bson.M{
			"storefront_id":     s.StorefrontID,
			"storefront_url":    s.StorefrontURL,
			"username":          s.Username,
			"creator_name":      s.CreatorName,
			"bio":               s.Bio,
			"profile_image_url": s.ProfileImageURL,
			"is_top_creator":    s.IsTopCreator,
			"storefront_likes":  s.StorefrontLikes,
			"follower_count":    s.FollowerCount,
			"total_lists":       s.TotalLists,
			"total_products":    s.TotalProducts,
			"discovery_source":  s.DiscoverySource,
			"marketplace":       s.Marketplace,
			"scraped_at":        s.ScrapedAt,
			"scrape_status":     s.ScrapeStatus,
			"scrape_error":      s.ScrapeError,
		}}

		res := collection.FindOneAndUpdate(context.Background(),
			bson.M{"storefront_id": s.StorefrontID}, update, opts)
		if err := res.Err(); err != nil && err != mongo.ErrNoDocuments {
			logger.Printf("error upserting storefront %s: %v", s.StorefrontID, err)
			continue
		}

		count++
		if count%100 == 0 {
			logger.Printf("synced %d storefronts...", count)
		}
	}

	logger.Printf("successfully synced %d storefronts", count)
	return nil
}

func syncLists(db *mongo.Database, rows []model.List, logger *log.Logger) error {
	logger.Println("syncing lists collection...")
	collection := db.Collection("lists")
	opts := options.FindOneAndUpdate().SetUpsert(true)

	count := 0
	for _, l := range rows {
		update := bson.M{"$set": bson.M{
			"list_id":        l.ListID,
			"storefront_id":  l.StorefrontID,
			"list_name":      l.ListName,
			"list_url":       l.ListURL,
			"likes_count":    l.LikesCount,
			"products_count": l.ProductsCount,
			"category":       l.Category,
			"position":       l.Position,
			"last_updated":   l.LastUpdated,
			"scraped_at":     l.ScrapedAt,
		}}

		res := collection.FindOneAndUpdate(context.Background(),
			bson.M{"list_id": l.ListID}, update, opts)
		if err := res.Err(); err != nil && err != mongo.ErrNoDocuments {
			logger.Printf("error upserting list %s: %v", l.ListID, err)
			continue
		}

		count++
		if count%100 == 0 {
			logger.Printf("synced %d lists...", count)
		}
	}

	logger.Printf("successfully synced %d lists", count)
	return nil
}

func syncProducts(db *mongo.Database, rows []model.Product, logger *log.Logger) error {
	logger.Println("syncing products collection...")
	collection := db.Collection("products")
	opts := options.FindOneAndUpdate().SetUpsert(true)

	count := 0
	for _, p := range rows {
		set := bson.M{
			"asin":             p.ASIN,
			"list_id":          p.ListID,
			"storefront_id":    p.StorefrontID,
			"product_title":    p.ProductTitle,
			"price":            p.Price,
			"currency":         p.Currency,
			"image_url":        p.ImageURL,
			"product_url":      p.ProductURL,
			"position_in_list": p.PositionInList,
			"scraped_at":       p.ScrapedAt,
		}
		if p.PriceKnown {
			set["price_numeric"] = p.PriceNumeric
		}

		res := collection.FindOneAndUpdate(context.Background(),
			bson.M{"asin": p.ASIN, "list_id": p.ListID}, bson.M{"$set": set}, opts)
		if err := res.Err(); err != nil && err != mongo.ErrNoDocuments {
			logger.Printf("error upserting product %s: %v", p.ASIN, err)
			continue
		}

		count++
		if count%100 == 0 {
			logger.Printf("synced %d products...", count)
		}
	}

	logger.Printf("successfully synced %d products", count)
	return nil
}

func mirrorToPostgres(db *sql.DB, storefronts []model.Storefront, products []model.Product, logger *log.Logger) error {
	logger.Println("mirroring to PostgreSQL...")

	if err := ensureSchema(db); err != nil {
		return err
	}

	count := 0
	for _, s := range storefronts {
		query := `
			INSERT INTO storefronts (storefront_id, storefront_url, creator_name, is_top_creator, storefront_likes, total_lists, total_products, discovery_source, marketplace, scrape_status, scraped_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (storefront_id) DO UPDATE SET
				storefront_url = EXCLUDED.storefront_url,
				creator_name = EXCLUDED.creator_name,
				is_top_creator = EXCLUDED.is_top_creator,
				storefront_likes = EXCLUDED.storefront_likes,
				total_lists = EXCLUDED.total_lists,
				total_products = EXCLUDED.total_products,
				discovery_source = EXCLUDED.discovery_source,
				marketplace = EXCLUDED.marketplace,
				scrape_status = EXCLUDED.scrape_status,
				scraped_at = EXCLUDED.scraped_at
		`

		_, err := db.Exec(query,
			s.StorefrontID, s.StorefrontURL, s.CreatorName, s.IsTopCreator,
			s.StorefrontLikes, s.TotalLists, s.TotalProducts,
			s.DiscoverySource, s.Marketplace, s.ScrapeStatus, s.ScrapedAt)
		if err != nil {
			logger.Printf("error inserting storefront %s: %v", s.StorefrontID, err)
			continue
		}
		count++
	}
	logger.Printf("mirrored %d storefronts", count)

	count = 0
	for _, p := range products {
		var priceNumeric sql.NullFloat64
		if p.PriceKnown {
			priceNumeric = sql.NullFloat64{Float64: p.PriceNumeric, Valid: true}
		}

		query := `
			INSERT INTO products (asin, list_id, storefront_id, product_title, price, price_numeric, currency, product_url, scraped_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (asin, list_id) DO UPDATE SET
				product_title = EXCLUDED.product_title,
				price = EXCLUDED.price,
				price_numeric = EXCLUDED.price_numeric,
				currency = EXCLUDED.currency,
				product_url = EXCLUDED.product_url,
				scraped_at = EXCLUDED.scraped_at
		`

		_, err := db.Exec(query,
			p.ASIN, p.ListID, p.StorefrontID, p.ProductTitle,
			p.Price, priceNumeric, p.Currency, p.ProductURL, p.ScrapedAt)
		if err != nil {
			logger.Printf("error inserting product %s: %v", p.ASIN, err)
			continue
		}
		count++
	}
	logger.Printf("mirrored %d products", count)
	return nil
}

func ensureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS storefronts (
			storefront_id TEXT PRIMARY KEY,
			storefront_url TEXT NOT NULL,
			creator_name TEXT,
			is_top_creator BOOLEAN DEFAULT FALSE,
			storefront_likes BIGINT DEFAULT 0,
			total_lists INTEGER DEFAULT 0,
			total_products INTEGER DEFAULT 0,
			discovery_source TEXT,
			marketplace TEXT,
			scrape_status TEXT,
			scraped_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			asin TEXT NOT NULL,
			list_id TEXT NOT NULL,
			storefront_id TEXT,
			product_title TEXT,
			price TEXT,
			price_numeric DOUBLE PRECISION,
			currency TEXT,
			product_url TEXT,
			scraped_at TIMESTAMPTZ,
			PRIMARY KEY (asin, list_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
