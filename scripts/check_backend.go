package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/credential"
)

func main() {
	fmt.Println("=========================================")
	fmt.Println("Parking Backend Connectivity Check")
	fmt.Println("=========================================")
	fmt.Println()

	baseURL := getEnv("BACKEND_BASE_URL", "http://localhost:8000")
	token := getEnv("BACKEND_TOKEN", "")

	cred := credential.New(token)
	if err := cred.Check(time.Now()); err != nil {
		fmt.Printf("❌ Credential check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Credential accepted locally")
	fmt.Println()

	client := parking.NewHTTPClient(baseURL, cred)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Test 1: gate status
	fmt.Println("Test 1: Gate status")
	status, err := client.GateStatus(ctx)
	if err != nil {
		fmt.Printf("❌ Gate status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Entry gate open: %v, exit gate open: %v\n", status.EntryOpen, status.ExitOpen)
	fmt.Println()

	// Test 2: camera settings
	fmt.Println("Test 2: Camera settings")
	settings, err := client.CameraSettings(ctx)
	if err != nil {
		fmt.Printf("❌ Camera settings failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Entry camera: %s\n", settings.EntryDevice)
	fmt.Printf("✅ Exit camera:  %s\n", settings.ExitDevice)
	fmt.Println()

	fmt.Println("=========================================")
	fmt.Println("All checks passed")
	fmt.Println("=========================================")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
