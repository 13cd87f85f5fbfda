package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"profile-service/config"
	"profile-service/db"
	"profile-service/handlers"
	"profile-service/imagestore"
	"profile-service/middleware"
	"profile-service/routes"
	"profile-service/secretmanager"
	"profile-service/store"
	"profile-service/telemetry"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	loadEnv         = godotenv.Load
	loadConfig      = config.Load
	initTelemetry   = telemetry.Init
	connectDB       = db.Connect
	newImageStore   = imagestore.NewCloudinaryStore
	newOrphanLedger = store.NewValkeyOrphanLedger
	setupRoutes     = routes.SetupRoutes
	listenAndServe  = http.ListenAndServe
	getSecret       = secretmanager.GetSecret
	logFatal        = log.Fatal
)

type postgresSecret struct {
	Username             string `json:"username"`
	Password             string `json:"password"`
	Engine               string `json:"engine"`
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	DBInstanceIdentifier string `json:"dbInstanceIdentifier"`
}

func loadSecretMap(secretName string) (map[string]string, error) {
	secretJSON, err := getSecret(secretName)
	if err != nil {
		return nil, err
	}
	secrets := make(map[string]string)
	if err := json.Unmarshal([]byte(secretJSON), &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

func loadPostgresSecret() (postgresSecret, error) {
	secretJSON, err := getSecret("prod/postgres")
	if err != nil {
		return postgresSecret{}, fmt.Errorf("error retrieving Postgres secret: %w", err)
	}
	var secret postgresSecret
	if err := json.Unmarshal([]byte(secretJSON), &secret); err != nil {
		return postgresSecret{}, fmt.Errorf("error parsing Postgres secret JSON: %w", err)
	}
	if err := validatePostgresSecret(secret); err != nil {
		return postgresSecret{}, err
	}
	return secret, nil
}

func validatePostgresSecret(secret postgresSecret) error {
	var missing []string
	for name, value := range map[string]string{
		"username":             secret.Username,
		"password":             secret.Password,
		"engine":               secret.Engine,
		"host":                 secret.Host,
		"dbInstanceIdentifier": secret.DBInstanceIdentifier,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("postgres secret is missing: %s", strings.Join(missing, ", "))
	}
	if secret.Port <= 0 || secret.Port > 65535 {
		return fmt.Errorf("postgres secret has invalid port: %d", secret.Port)
	}
	return nil
}

func setEnv(key, value string) error {
	if key == "" {
		return errors.New("environment key must not be empty")
	}
	return os.Setenv(key, value)
}

func setEnvFromMap(values map[string]string) error {
	for key, value := range values {
		if err := setEnv(key, value); err != nil {
			return err
		}
	}
	return nil
}

func loadProdSecrets() error {
	pg, err := loadPostgresSecret()
	if err != nil {
		return err
	}
	if err := setEnvFromMap(map[string]string{
		"DB_USERNAME":            pg.Username,
		"DB_PASSWORD":            pg.Password,
		"DB_ENGINE":              pg.Engine,
		"DB_HOST":                pg.Host,
		"DB_PORT":                strconv.Itoa(pg.Port),
		"DB_INSTANCE_IDENTIFIER": pg.DBInstanceIdentifier,
	}); err != nil {
		return err
	}

	cloudinarySecrets, err := loadSecretMap("prod/cloudinary")
	if err != nil {
		return fmt.Errorf("error retrieving Cloudinary secret: %w", err)
	}
	if err := setEnvFromMap(cloudinarySecrets); err != nil {
		return err
	}

	valkeySecrets, err := loadSecretMap("prod/valkey")
	if err == nil {
		return setEnvFromMap(valkeySecrets)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		logFatal(err)
	}
}

func run() error {
	if err := loadEnv(); err != nil {
		log.Println("No .env file found; using system environment variables")
	}
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	log.Println("Environment:", appEnv)

	if appEnv == "prod" {
		if err := loadProdSecrets(); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	shutdownTelemetry, err := initTelemetry(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("telemetry error: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	if err := connectDB(cfg.DB); err != nil {
		return err
	}

	images, err := newImageStore(cfg.Cloudinary)
	if err != nil {
		return fmt.Errorf("image store error: %w", err)
	}

	var orphans store.OrphanLedger
	if cfg.Valkey.Addr != "" {
		ledger, err := newOrphanLedger(cfg.Valkey)
		if err != nil {
			return fmt.Errorf("valkey connection error: %w", err)
		}
		defer ledger.Close()
		orphans = ledger
	} else {
		log.Println("Orphan ledger disabled: VALKEY_ADDR is empty")
	}

	profileHandler := handlers.NewProfileHandler(cfg, images, orphans)
	router := setupRoutes(profileHandler)

	corsOpts := []gorillaHandlers.CORSOption{
		gorillaHandlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "PUT", "PATCH", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
		gorillaHandlers.AllowCredentials(),
	}

	handler := otelhttp.NewHandler(
		middleware.RequestLogger(gorillaHandlers.CORS(corsOpts...)(router)),
		cfg.Telemetry.ServiceName,
	)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s in %s environment (CORS: %s)", port, cfg.AppEnv, strings.Join(cfg.CORS.AllowedOrigins, ","))
	return listenAndServe(":"+port, handler)
}
