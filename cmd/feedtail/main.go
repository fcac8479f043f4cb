// feedtail connects to the notification server and prints delivery-status
// updates and channel state changes to the console.
// Usage: go run ./cmd/feedtail --config configs/feedtail.example.yaml
//
// Credentials come from the config file, a token file, or the environment:
//
//	FEED_USER_ID      - Merchant user ID
//	FEED_ACCESS_TOKEN - Bearer token issued by the login flow
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
