package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <bearer-token> [required-permission] [server-addr]", os.Args[0])
	}

	token := os.Args[1]

	permission := ""
	if len(os.Args) > 2 {
		permission = os.Args[2]
	}

	serverAddr := "http://localhost:8080"
	if len(os.Args) > 3 {
		serverAddr = os.Args[3]
	}

	req, err := http.NewRequest("GET", serverAddr+"/auth/check/test", nil)
	if err != nil {
		log.Fatalf("Failed to create request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if permission != "" {
		req.Header.Set("X-Required-Permission", permission)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		fmt.Println("✅ Request ALLOWED")
		fmt.Println("\nIdentity headers:")
		for k, v := range resp.Header {
			if strings.HasPrefix(strings.ToLower(k), "x-") {
				fmt.Printf("  %s: %s\n", k, strings.Join(v, ", "))
			}
		}
	case http.StatusUnauthorized:
		fmt.Printf("❌ Authentication REJECTED (401): %s\n", string(body))
	case http.StatusForbidden:
		fmt.Printf("❌ Authorization DENIED (403): %s\n", string(body))
	default:
		fmt.Printf("⚠️ Unexpected status %d: %s\n", resp.StatusCode, string(body))
	}
}
