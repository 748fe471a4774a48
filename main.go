package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"progression-engine/handlers"
	"progression-engine/middleware"
	"progression-engine/models"
	"progression-engine/services"
	"progression-engine/utils"
	"progression-engine/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // 32MB — badge icons and reward art only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-Device-ID, X-User-ID, X-User-Roles, X-Internal-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.UserProgression{},
		&models.XPTransaction{},
		&models.QuestDefinition{},
		&models.UserQuest{},
		&models.RewardGrant{},
		&models.BattlePass{},
		&models.BattlePassReward{},
		&models.BattlePassProgress{},
		&models.BattlePassRewardClaim{},
		&models.BadgeDefinition{},
		&models.UserBadge{},
		&models.EntitlementMirror{},
		&models.ProfileMirror{},
		&models.FriendEdge{},
		&models.LeaderboardSnapshot{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	bus := services.NewEventBus()
	badgeService := services.NewBadgeService(db, bus)
	progressionService := services.NewProgressionService(db, services.LevelCurveFromEnv(), bus)
	progressionService.Badges = badgeService
	questService := services.NewQuestCycleService(db, bus)
	battlePassService := services.NewBattlePassService(db, bus)
	claimService := services.NewClaimService(db, progressionService, battlePassService, bus)
	leaderboardService := services.NewLeaderboardService(db)
	catalogService := services.NewCatalogService(db)

	// Level-ups count toward "reach level" quests.
	progressionService.OnLevelUp = func(userID string, levelsGained int) {
		if err := questService.RecordProgress(userID, "level_up", int64(levelsGained), "", time.Now().UTC()); err != nil {
			log.Printf("⚠️ level-up quest progress for %s not recorded: %v", userID, err)
		}
	}

	if err := catalogService.SeedDefaults(); err != nil {
		log.Fatal("failed to seed catalogs:", err)
	}

	// --- CONFIGURE Sync Service Details ---
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("PROGRESSION_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("PROGRESSION_SERVICE_TOKEN environment variable not set")
	}
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	// --- END CONFIG ---

	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profileSyncWorker := workers.NewProfileSyncWorker(db, profileServiceURL, "/api/v1/public/profiles", serviceToken)
	profileSyncWorker.Start(ctx)

	entitlementClient := workers.NewEntitlementSyncClient(db)
	go workers.PollEntitlements(ctx, entitlementClient, 10*time.Second)

	scheduler, err := services.StartEngineScheduler(questService, battlePassService, leaderboardService)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	defer func() { _ = scheduler.Shutdown() }()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupProgressionRoutes(app, progressionService)
	handlers.SetupQuestRoutes(app, questService, claimService)
	handlers.SetupBattlePassRoutes(app, battlePassService, claimService)
	handlers.SetupBadgeRoutes(app, badgeService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService)
	handlers.SetupInternalRoutes(app, progressionService, questService, battlePassService)
	handlers.SetupAdminRoutes(app, catalogService, progressionService, questService, leaderboardService)
	handlers.SetupEventRoutes(app, bus, authClient)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Entitlement polling running (every 10s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
