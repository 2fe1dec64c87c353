package config

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connections. Both are nil when no MONGO_URI is set.
type DB struct {
	SQL   *gorm.DB
	Mongo *mongo.Client
}

// InitDB opens the SQL database named by DATABASE_URL and the MongoDB client.
// Without MONGO_URI it opens nothing outside production.
func InitDB(cfg *Config) (*DB, error) {
	if cfg.MongoURI == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("MONGO_URI is required in production")
		}
		log.Println("MONGO_URI not set, all data is kept in memory and lost on restart.")
		return &DB{}, nil
	}

	sqlDB, err := OpenSQL(cfg.DatabaseURL, !cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQL database: %w", err)
	}

	db := &DB{SQL: sqlDB}
	if db.Mongo, err = initMongo(cfg.MongoURI); err != nil {
		db.CloseDB()
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return db, nil
}

// OpenSQL picks the GORM dialect from the URL scheme: postgres:// or
// sqlite://<path>.
func OpenSQL(url string, verbose bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		dialector = postgres.Open(url)
		log.Println("Connecting to PostgreSQL database...")
	case strings.HasPrefix(url, "sqlite://"):
		dsn := strings.TrimPrefix(url, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Println("Connecting to SQLite database at", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL prefix, must start with postgres:// or sqlite://")
	}

	mode := logger.Silent
	if verbose {
		mode = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(mode),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	if dialector.Name() == "sqlite" {
		// one writer at a time, and :memory: databases live per connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	log.Println("SQL database connection established.")
	return db, nil
}

func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Println("Successfully connected to MongoDB!")
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.SQL != nil {
		sqlDB, err := db.SQL.DB()
		if err != nil {
			log.Printf("Error getting SQL DB from GORM: %v\n", err)
		} else if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing SQL connection: %v\n", err)
		} else {
			log.Println("SQL connection closed.")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			log.Printf("Error closing MongoDB connection: %v\n", err)
		} else {
			log.Println("MongoDB connection closed.")
		}
	}
}
