package main

import (
	"fmt"
	"os"

	"github.com/grcov-go/grcov/cmd/grcov/app"

	_ "github.com/grcov-go/grcov/internal/producer/gcno"             // register .gcno/.gcda producer
	_ "github.com/grcov-go/grcov/internal/producer/gcovintermediate" // register gcov-intermediate producer
	_ "github.com/grcov-go/grcov/internal/producer/gocover"          // register Go coverprofile producer
	_ "github.com/grcov-go/grcov/internal/producer/jacoco"           // register JaCoCo XML producer
	_ "github.com/grcov-go/grcov/internal/producer/lcov"             // register lcov INFO producer
	_ "github.com/grcov-go/grcov/internal/producer/profraw"          // register profraw directory-hint producer
)

func main() {
	if err := app.NewGrcovCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
