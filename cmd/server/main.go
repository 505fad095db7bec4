package main

import "accessgov/internal/app/server"

func main() {
	server.Run()
}
