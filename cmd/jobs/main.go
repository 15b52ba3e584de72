package main

import (
	"akvilon/internal/server"
)

func main() {
	server.JobsInit()
}
