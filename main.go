package main

import "github.com/mimiro-io/entity-variable-datalayer/internal/app"

func main() {
	app.Run()
}
