// Command pinhash prints the bcrypt hash of a PIN for the pin_hash field of
// the users file.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"duotoeic/internal/auth"
)

func main() {
	var pin string
	if len(os.Args) > 1 {
		pin = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("read pin: %v", err)
		}
		pin = line
	}
	pin = strings.TrimSpace(pin)
	if pin == "" {
		log.Fatal("usage: pinhash <pin>")
	}
	hash, err := auth.NewManager("").HashPIN(pin)
	if err != nil {
		log.Fatalf("hash pin: %v", err)
	}
	fmt.Println(hash)
}
