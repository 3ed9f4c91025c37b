package main

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/imgeval/internal/handlers"
)

func ServeHandler(cmd *cobra.Command, args []string) error {
	cfg, registry, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	handler := handlers.NewHandler(registry, cfg.MaxUploadMB)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Printf("Nodes: %v", registry.IDs())
	log.Println("Endpoints:")
	log.Println("  GET  /health                - Health check")
	log.Println("  GET  /object_info           - Node declarations")
	log.Println("  GET  /object_info/{id}      - Single node declaration")
	log.Println("  POST /nodes/{id}/execute    - Execute a node (multipart form)")

	return http.ListenAndServe(":"+cfg.Port, handler.Routes())
}
