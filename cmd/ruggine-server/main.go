package main

import (
	"log"
	"os"

	"ruggine/cmd/internal/app"
)

func main() {
	if err := app.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
