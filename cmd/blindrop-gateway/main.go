package main

import (
	"log"

	"github.com/blindrop/blindrop/core/gateway"
	"github.com/blindrop/blindrop/core/infra/buildinfo"
	"github.com/blindrop/blindrop/core/infra/config"
)

func main() {
	log.Println("blindrop gateway starting...")
	buildinfo.Log("blindrop-gateway")
	cfg := config.Load()
	if err := gateway.Run(cfg); err != nil {
		log.Fatalf("gateway error: %v", err)
	}
}
