package main

import (
	"media-service/app"
)

func main() {
	app.Run()
}
