// Command mthunzisite serves the Mthunzi Trust content API and website.
package main

import (
	"context"
	"log"

	"github.com/dalemusser/waffle/app"
	"github.com/mthunzitrust/mthunzisite/internal/app/bootstrap"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
