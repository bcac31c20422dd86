package main

import (
	"flag"
	"log"

	"github.com/ageniuscoder/mmchat/gateway/internal/chatstore"
	"github.com/ageniuscoder/mmchat/gateway/internal/config"
	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/ageniuscoder/mmchat/gateway/internal/storage/sqlite"
	"github.com/gin-gonic/gin"
)

func main() {
	migrate := flag.Bool("migrate", false, "run migrations and exits")
	flag.Parse()

	cfg := config.Load()
	zl := logger.NewZapLogger("chatstore.log", cfg.IsProduction())
	defer zl.Sync()

	//database handling
	conn, err := sqlite.New(cfg.Store.SQLiteDsn)
	if err != nil {
		log.Fatalf("Error loading to database: %v", err)
	}
	defer conn.Close()

	if *migrate {
		if err := conn.Migrate(); err != nil {
			log.Fatalf("Migration failed %v", err)
		}
		zl.Info("Main", "Migration Completed", nil)
		return
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	zl.Info("Main", "chatstore listening", map[string]interface{}{"addr": cfg.Store.Addr})
	if err := chatstore.NewEngine(conn.Db, zl).Run(cfg.Store.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
