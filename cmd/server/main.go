// Qualis - Quality Management Records
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aethra/qualis/internal/api"
	"github.com/aethra/qualis/internal/auth"
	"github.com/aethra/qualis/internal/config"
	"github.com/aethra/qualis/internal/database"
	"github.com/aethra/qualis/internal/engine"
	"github.com/aethra/qualis/internal/models"
	"github.com/aethra/qualis/internal/suggest"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Version = "1.0.0"

func main() {
	if len(os.Args) > 1 {
		runCLI()
		return
	}
	startServer()
}

func startServer() {
	fmt.Printf("Qualis %s - Starting...\n", Version)

	db := connectDB()
	log.Println("Database connected")

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations complete")

	cfg := config.NewService(db)

	notifier := engine.NewNotifier()
	schemaSvc := engine.NewSchemaService(db, notifier)
	workflowEngine := engine.NewWorkflowEngine(db)
	fieldEngine := engine.NewFieldEngine(db)
	recordSvc := engine.NewRecordService(db, workflowEngine, fieldEngine)
	linkSvc := engine.NewLinkService(db)
	wizard := engine.NewWizard(schemaSvc, recordSvc, linkSvc)

	tokenHours := cfg.GetInt("TOKEN_TTL_HOURS", 24)
	authSvc := auth.NewService(db, requireEnv("JWT_SECRET"), time.Duration(tokenHours)*time.Hour)

	suggester := suggest.NewClient(
		cfg.Get("SUGGEST_ENDPOINT"),
		cfg.Get("SUGGEST_API_KEY"),
	)

	handler := &api.Handler{
		Schema:    schemaSvc,
		Records:   recordSvc,
		Workflow:  workflowEngine,
		Links:     linkSvc,
		Wizard:    wizard,
		Notifier:  notifier,
		Auth:      authSvc,
		Suggester: suggester,
	}
	router := api.NewRouter(handler, cfg.GetList("ALLOWED_ORIGINS", nil))

	port := getEnv("PORT", "8090")
	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func connectDB() *gorm.DB {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var db *gorm.DB
	var err error
	switch getEnv("DB_DRIVER", "postgres") {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			requireEnv("DB_USER"),
			requireEnv("DB_PASSWORD"),
			requireEnv("DB_HOST"),
			requireEnv("DB_PORT"),
			requireEnv("DB_NAME"),
		)
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	default:
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			requireEnv("DB_HOST"),
			requireEnv("DB_PORT"),
			requireEnv("DB_USER"),
			requireEnv("DB_PASSWORD"),
			requireEnv("DB_NAME"),
		)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	return db
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Missing required env: %s", key)
	}
	return value
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// CLI
func runCLI() {
	cmd := os.Args[1]
	switch cmd {
	case "serve":
		startServer()
	case "migrate":
		db := connectDB()
		if err := database.RunMigrations(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migrations complete")
	case "seed":
		runSeed()
	case "user":
		runUserCmd()
	default:
		printUsage()
	}
}

func printUsage() {
	fmt.Println(`Usage: qualis <command>
Commands:
  serve                                 Start server
  migrate                               Run migrations
  seed                                  Create the example CAPA process
  user list                             List users
  user create --email= --password=      Create user (--name=, --role=)`)
}

func runUserCmd() {
	if len(os.Args) < 3 {
		printUsage()
		return
	}
	db := connectDB()
	switch os.Args[2] {
	case "list":
		var users []models.UserProfile
		db.Find(&users)
		for _, u := range users {
			fmt.Printf("%s <%s> %s\n", u.FullName, u.Email, u.Role)
		}
	case "create":
		email := getFlag("--email")
		password := getFlag("--password")
		if email == "" || password == "" {
			printUsage()
			return
		}
		role := models.UserRole(getFlag("--role"))
		if role == "" {
			role = models.RoleQualityManager
		}
		authSvc := auth.NewService(db, getEnv("JWT_SECRET", "unused"), time.Hour)
		user, err := authSvc.CreateUser(email, password, getFlag("--name"), role)
		if err != nil {
			log.Fatalf("Failed: %v", err)
		}
		fmt.Printf("User created: %s\n", user.Email)
	}
}

func getFlag(name string) string {
	prefix := name + "="
	for _, arg := range os.Args {
		if len(arg) > len(prefix) && arg[:len(prefix)] == prefix {
			return arg[len(prefix):]
		}
	}
	return ""
}

// runSeed creates the corrective-action example process so a fresh
// installation has something to click on.
func runSeed() {
	db := connectDB()
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	var count int64
	db.Model(&models.Process{}).Where("name = ?", "Corrective Action (CAPA)").Count(&count)
	if count > 0 {
		fmt.Println("Example process already exists")
		return
	}

	notifier := engine.NewNotifier()
	schemaSvc := engine.NewSchemaService(db, notifier)

	draft, _ := suggest.Static{}.Suggest(context.Background(), suggest.Request{
		Description: "Corrective and preventive action tracking",
	})
	input := engine.CreateProcessInput{
		Name:           draft.ProcessName,
		Description:    draft.Description,
		Tag:            "quality",
		RecordIDPrefix: draft.RecordIDPrefix,
	}
	for _, f := range draft.Fields {
		input.Fields = append(input.Fields, engine.FieldInput{
			FieldName:    f.FieldName,
			FieldLabel:   f.FieldLabel,
			FieldType:    f.FieldType,
			IsRequired:   f.IsRequired,
			FieldOptions: f.FieldOptions,
		})
	}
	for _, s := range draft.Steps {
		input.Steps = append(input.Steps, engine.StepInput{
			StepName:     s.StepName,
			StepOrder:    s.StepOrder,
			RequiredRole: s.RequiredRole,
			CanApprove:   s.CanApprove,
			CanReject:    s.CanReject,
		})
	}

	if _, err := schemaSvc.CreateProcess(input, models.DemoUserID); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	fmt.Println("Example process created")
}
