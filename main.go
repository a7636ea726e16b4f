package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/recruitcli"
)

func main() {
	if err := recruitcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, recruitcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			recruitcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		if errors.Is(err, domain.ErrRowsRejected) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		log.Fatal(err)
	}
}
