// Command admin tareas de operación: migraciones y cambios manuales de plan.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jhoicas/invoicely-api/internal/infrastructure/storage"
	"github.com/jhoicas/invoicely-api/pkg/config"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

func main() {
	// .env es opcional; las variables del entorno tienen prioridad.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).WithComponent("admin")

	root := newRootCmd(cfg, log, storage.Open)
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("comando fallido")
		os.Exit(1)
	}
}
