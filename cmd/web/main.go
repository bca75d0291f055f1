package main

import "vpnbot_backend/internal/app"

func main() {
	app.Run()
}
