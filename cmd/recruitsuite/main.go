package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/recruitsuite/internal/recruitcli"
)

func main() {
	if err := recruitcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, recruitcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			recruitcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
