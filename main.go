package main

import (
	"fingerprint.gateman.io/infrastructure"
	"fingerprint.gateman.io/infrastructure/env"
)

func init() {
	env.LoadEnv()
}

func main() {
	infrastructure.StartServer()
}
