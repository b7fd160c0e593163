package main

import (
	"log"

	"github.com/serenity-care/dispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
