// main.go
package main

import (
	"log"

	"github.com/erictragoustis/vuvoregs/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
