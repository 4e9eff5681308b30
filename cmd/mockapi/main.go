package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"storefront/internal/mockapi"
	"storefront/pkg/logger"
)

func main() {
	port := "8081"
	if len(os.Args) > 1 {
		port = os.Args[1]
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	srv := mockapi.NewServer(logger.NewZeroLog(env))

	addr := fmt.Sprintf(":%s", port)
	fmt.Printf("Mock flight API running on port %s...\n", port)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
