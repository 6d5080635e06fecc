package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/cafesuite/internal/cafesuitecli"
)

func main() {
	if err := cafesuitecli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, cafesuitecli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			cafesuitecli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
