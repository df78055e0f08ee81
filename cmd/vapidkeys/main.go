// Generates a fresh VAPID key pair and prints it so it can be copied into the
// configuration or the secret backend.
package main

import (
	"fmt"
	"os"

	"github.com/schedly/push-gateway/pkg/webpush"
)

func main() {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot generate key pair: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("PUSHGATEWAY_VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Printf("PUSHGATEWAY_VAPID_PRIVATE_KEY=%s\n", privateKey)
}
